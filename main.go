package main

import "github.com/ValentinKolb/dQuery/cmd"

func main() {
	cmd.Execute()
}
