package tutil

import (
	"os"
	"strings"
)

func IsIntegrationTest() bool {
	testType := os.Getenv("DREPO_TEST")
	return strings.ToLower(testType) == "integration"
}
