package main

import "wcpredict/internal/process"

func main() {
	process.Run()
}
