// Command relay runs the weekend planner pipeline and inspects its history.
package main

func main() {
	Execute()
}
