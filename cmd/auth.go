package main

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/homeboard/internal/credentials"
	"github.com/desertthunder/homeboard/internal/shared"
)

func parseProvider(name string) (credentials.Provider, error) {
	if name == "" {
		return "", fmt.Errorf("%w: provider (google or spotify)", shared.ErrMissingArgument)
	}
	p, ok := credentials.ParseProvider(name)
	if !ok {
		return "", fmt.Errorf("%w: unknown provider %q", shared.ErrInvalidArgument, name)
	}
	return p, nil
}

// AuthLogin opens the running server's login page for a provider in the browser.
//
// The OAuth callback lands on the server, so it must be running and reachable at its public URL.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	p, err := parseProvider(cmd.StringArg("provider"))
	if err != nil {
		return err
	}
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	a, err := r.open(ctx, config)
	if err != nil {
		return err
	}
	defer a.close()

	if !a.deps.Refresher.Configured(p) {
		return fmt.Errorf("%w: %s client_id and client_secret must be set", shared.ErrNotConfigured, p)
	}

	base := config.Server.BaseURL()
	if err := r.ping(ctx, base); err != nil {
		r.logger.Warn("server is not reachable, start it with 'homeboard serve'", "url", base, "error", err)
	}

	loginURL := fmt.Sprintf("%s/auth/%s/login", base, p)
	r.writePlain("→ Opening browser for %s authorization...\n", p)
	if err := shared.OpenBrowser(loginURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
	}
	r.writePlain("Login URL:\n%s\n\n", loginURL)
	return r.writePlain("Run 'homeboard auth status' once the browser shows \"Connected\".\n")
}

func (r *Runner) ping(ctx context.Context, base string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/api/health", nil)
	if err != nil {
		return err
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health returned %d", shared.ErrUpstreamUnavailable, resp.StatusCode)
	}
	return nil
}

// AuthStatus prints each provider's credential state.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}
	a, err := r.open(ctx, config)
	if err != nil {
		return err
	}
	defer a.close()

	statuses := make([]credentials.Status, 0, len(credentials.Providers))
	for _, p := range credentials.Providers {
		st, err := a.deps.Refresher.Status(ctx, p)
		if err != nil {
			return fmt.Errorf("failed to read %s token: %w", p, err)
		}
		statuses = append(statuses, st)
	}

	if cmd.Bool("json") {
		return r.writeJSON(statuses, true)
	}

	rows := make([][]string, 0, len(statuses))
	for _, st := range statuses {
		expires := "-"
		if !st.ExpiresAt.IsZero() {
			expires = st.ExpiresAt.Local().Format(time.DateTime)
		}
		rows = append(rows, []string{
			string(st.Provider),
			yesNo(st.Configured),
			yesNo(st.Connected),
			yesNo(st.Refreshable),
			expires,
		})
	}
	return r.writePlain("%s\n", renderTable(
		[]string{"Provider", "Configured", "Connected", "Refreshable", "Expires"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
	))
}

// AuthLogout deletes a provider's stored token.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	p, err := parseProvider(cmd.StringArg("provider"))
	if err != nil {
		return err
	}
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}
	a, err := r.open(ctx, config)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.deps.Refresher.Logout(ctx, p); err != nil {
		return fmt.Errorf("failed to delete %s token: %w", p, err)
	}
	r.logger.Info("logged out", "provider", p)
	return r.writePlain("✓ Logged out of %s\n", p)
}

func yesNo(b bool) string {
	return strconv.FormatBool(b)
}
