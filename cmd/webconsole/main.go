// Command webconsole runs a demo host application with the web console
// mounted, and talks to a running console from the command line.
//
//	webconsole serve                 start the server
//	webconsole eval 'a = 4; a * 2'   evaluate code in a running console
//	webconsole token                 print the console token
//	webconsole token ticket          sign a short-lived ticket
package main

func main() {
	Execute()
}
