package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/felixgeelhaar/ghgate/internal/auth"
)

// ErrAborted is returned when the user dismisses a prompt.
var ErrAborted = errors.New("prompt aborted")

func runForm(ctx context.Context, field huh.Field) error {
	form := huh.NewForm(huh.NewGroup(field)).WithOutput(os.Stderr)
	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return ErrAborted
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("prompt failed: %w", err)
	}
	return nil
}

// PromptForToken asks for a personal access token without echoing it.
func PromptForToken(ctx context.Context) (string, error) {
	var token string

	input := huh.NewInput().
		Title("GitHub personal access token").
		Description("Needs read:org to check organization membership.").
		EchoMode(huh.EchoModePassword).
		Value(&token).
		Validate(func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("token is required")
			}
			return nil
		})

	if err := runForm(ctx, input); err != nil {
		return "", err
	}
	return strings.TrimSpace(token), nil
}

// PromptForOrganization asks for the organization to sign in to.
func PromptForOrganization(ctx context.Context, placeholder string) (string, error) {
	var org string

	input := huh.NewInput().
		Title("GitHub organization").
		Placeholder(placeholder).
		Value(&org).
		Validate(func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("organization is required")
			}
			return auth.ValidateOrganization(strings.TrimSpace(s))
		})

	if err := runForm(ctx, input); err != nil {
		return "", err
	}
	return strings.TrimSpace(org), nil
}

// PromptForConfirmation displays a yes/no confirmation prompt
func PromptForConfirmation(ctx context.Context, message string, defaultValue bool) (bool, error) {
	confirmed := defaultValue

	confirm := huh.NewConfirm().
		Title(message).
		Value(&confirmed)

	if err := runForm(ctx, confirm); err != nil {
		return false, err
	}
	return confirmed, nil
}

// IsInteractive returns true if stdin is a terminal (not piped)
func IsInteractive() bool {
	fileInfo, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// ShouldPrompt returns true if prompts should be shown based on environment
// Prompts are disabled in CI environments or when stdin is not a terminal
func ShouldPrompt() bool {
	if inCI() {
		return false
	}
	return IsInteractive()
}

func inCI() bool {
	for _, envVar := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "BUILDKITE"} {
		if os.Getenv(envVar) != "" {
			return true
		}
	}
	return false
}
