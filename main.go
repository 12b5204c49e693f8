package main

import "github.com/ValentinKolb/trol/cmd"

func main() {
	cmd.Execute()
}
