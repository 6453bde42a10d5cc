// Package constants holds fixed names shared across the solution.
package constants

// SolutionName appears in human-readable resource descriptions.
const SolutionName = "Intelli-Agent"
