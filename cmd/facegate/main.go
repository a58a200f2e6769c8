// Command facegate runs the face-recognition access decision service and its
// administrative tooling.
package main

func main() {
	Execute()
}
