package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/scigolab/auth"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writePeople(t *testing.T) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("age,city,label\n")
	ages := []int{22, 25, 47, 52, 46, 56, 55, 60, 62, 61, 18, 28, 27, 29, 49, 55}
	cities := []string{"tokyo", "osaka", "nagoya"}
	for i, a := range ages {
		label := 0
		if a > 40 {
			label = 1
		}
		fmt.Fprintf(&b, "%d,%s,%d\n", a, cities[i%3], label)
	}
	path := filepath.Join(t.TempDir(), "people.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))
	return path
}

func TestRunCommand(t *testing.T) {
	data := writePeople(t)
	pdf := filepath.Join(t.TempDir(), "out.pdf")

	out, err := execute(t, "run", "--file", data, "--target", "label",
		"--algorithm", "logistic_regression", "--split", "0.25", "--report", pdf)
	require.NoError(t, err)
	assert.Contains(t, out, "algorithm: logistic_regression (classification)")
	assert.Contains(t, out, "rows: 12 train, 4 test")
	assert.Contains(t, out, "accuracy: ")

	body, err := os.ReadFile(pdf)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF-")))
}

func TestRunCommandRejectsUnknownTarget(t *testing.T) {
	data := writePeople(t)
	_, err := execute(t, "run", "--file", data, "--target", "income", "--report", "")
	assert.Error(t, err)
}

func TestAlgorithmsCommand(t *testing.T) {
	out, err := execute(t, "algorithms")
	require.NoError(t, err)
	assert.Contains(t, out, "linear_regression")
	assert.Contains(t, out, "knn_classifier")
}

func TestTokenCommand(t *testing.T) {
	secret := "0123456789abcdef0123456789abcdef"
	t.Setenv("SCIGOLAB_JWT_SECRET", secret)

	out, err := execute(t, "token", "--user", "7")
	require.NoError(t, err)

	v, err := auth.NewVerifier([]byte(secret))
	require.NoError(t, err)
	id, err := v.Verify(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "7", id.UserID)
}
