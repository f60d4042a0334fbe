package main

import "coach-booking/cmd"

func main() {
	cmd.Execute()
}
