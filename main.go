// main.go
package main

import "booking-payments/cmd"

func main() {
	cmd.Execute()
}
