package main

import (
	"fmt"
	"os"

	"github.com/gofiber/fiber/v3"
)

// readFile loads a file's full contents, wrapping the error with the path
// for easier diagnosis when an operator passes a bad --rbac-policy flag.
func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return data, nil
}

// fiberListenConfig quiets fiber's banner; the worker logs its own startup
// line through slog.
func fiberListenConfig() fiber.ListenConfig {
	return fiber.ListenConfig{DisableStartupMessage: true}
}
