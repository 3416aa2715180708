// Command desim runs the bundled simulation models from the command line.
package main

func main() {
	Execute()
}
