package main

import "github.com/andresmejia3/streetcurate/cmd"

func main() {
	cmd.Execute()
}
