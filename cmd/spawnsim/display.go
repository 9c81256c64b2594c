package main

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ── Startup display helpers ────────────────────────────────────────

func printBanner(name string, id int) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Printf("\033[36;1m  │\033[0m             spawnsim  v%-6s             \033[36;1m│\033[0m\n", version)
	fmt.Println("\033[36;1m  │\033[0m   pooled entities · time-sliced spawners  \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mserver:\033[0m %s \033[90m(id: %d)\033[0m\n\n", name, id)
}

func printSection(title string) {
	lineLen := max(3, 46-utf8.RuneCountInString(title)-1)
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := max(3, 42-utf8.RuneCountInString(label)-len(numStr))
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printFail(msg string) {
	fmt.Printf("  \033[31m✗\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}
