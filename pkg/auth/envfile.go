package auth

import (
	"bufio"
	"os"
	"strings"
)

// TokenFromEnv resolves a bearer token for non-interactive use: the
// CYBERTWIN_TOKEN environment variable first, then a TOKEN= line in the
// given env file. Returns "" when neither is set.
func TokenFromEnv(envFile string) string {
	if token := os.Getenv("CYBERTWIN_TOKEN"); token != "" {
		return token
	}

	if envFile == "" {
		return ""
	}

	return readTokenFromEnvFile(envFile)
}

func readTokenFromEnvFile(envFile string) string {
	file, err := os.Open(envFile)
	if err != nil {
		return ""
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, "TOKEN=") {
			parts := strings.SplitN(line, "=", 2)
			if len(parts) == 2 {
				return strings.TrimSpace(parts[1])
			}
		}
	}

	return ""
}
