// Package main provides the entry point for the jokeimport CLI.
package main

func main() {
	Execute()
}
