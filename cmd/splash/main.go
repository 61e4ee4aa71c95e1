// Command splash reconstructs triangle surfaces from SPH particle data.
package main

func main() {
	Execute()
}
