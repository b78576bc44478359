package e2e_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/pongladder/internal/api"
	"github.com/mcoot/pongladder/internal/api/response"
	"github.com/mcoot/pongladder/internal/factory"
)

// pongctlPath is built once for the whole package
var pongctlPath string

func TestMain(m *testing.M) {
	os.Exit(runWithBinary(m))
}

func runWithBinary(m *testing.M) int {
	dir, err := os.MkdirTemp("", "pongctl-e2e")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer func() { _ = os.RemoveAll(dir) }()

	root, err := moduleRoot()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	pongctlPath = filepath.Join(dir, "pongctl")
	build := exec.Command("go", "build", "-o", pongctlPath, "./cmd/pongctl")
	build.Dir = root
	if out, err := build.CombinedOutput(); err != nil {
		fmt.Fprintf(os.Stderr, "building pongctl: %v\n%s", err, out)
		return 1
	}

	return m.Run()
}

func moduleRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no go.mod above %s", dir)
		}
		dir = parent
	}
}

// pongctl runs the built binary against one server, configured the way a
// user would through PONGCTL_* variables
type pongctl struct {
	serverURL string
}

func (p pongctl) exec(output string, args ...string) (string, error) {
	cmd := exec.Command(pongctlPath, args...)
	cmd.Env = append(os.Environ(),
		"PONGCTL_SERVER="+p.serverURL,
		"PONGCTL_OUTPUT="+output,
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

func (p pongctl) run(args ...string) (string, error) {
	return p.exec("json", args...)
}

func (p pongctl) runText(args ...string) (string, error) {
	return p.exec("text", args...)
}

// startLadder serves a sqlite-backed ladder on a free port until the test ends
func startLadder(t *testing.T) pongctl {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	app, err := factory.New(factory.Config{
		Logger:      logger,
		StorageType: factory.StorageTypeSQLite,
		SQLitePath:  filepath.Join(t.TempDir(), "ladder.db"),
	})
	require.NoError(t, err)

	router := api.NewRouter(api.RouterConfig{
		Logger:        logger,
		LedgerService: app.LedgerService,
		QueryFacade:   app.QueryFacade,
		Events:        app.Events,
	})

	cfg := api.DefaultServerConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = port
	cfg.ShutdownTimeout = 5 * time.Second
	server := api.NewServer(router, cfg, logger)
	server.OnShutdown(func() { _ = app.Events.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Logf("server: %v", err)
		}
		_ = app.Close()
	})

	serverURL := "http://" + server.Addr()
	waitForServer(t, serverURL+"/api/v1/health")
	return pongctl{serverURL: serverURL}
}

func waitForServer(t *testing.T, url string) {
	t.Helper()

	client := &http.Client{Timeout: 100 * time.Millisecond}
	require.Eventually(t, func() bool {
		resp, err := client.Get(url)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond, "server did not become ready")
}

func decode[T any](t *testing.T, output string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(output), &v), "output: %s", output)
	return v
}

type healthResponse struct {
	Status string `json:"status"`
	Server string `json:"server"`
}


func TestCLI_HealthCheck(t *testing.T) {
	cli := startLadder(t)

	output, err := cli.run("health")
	require.NoError(t, err, "output: %s", output)
	health := decode[healthResponse](t, output)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, cli.serverURL, health.Server)
}

func TestCLI_LadderFlow(t *testing.T) {
	cli := startLadder(t)

	// Register players
	output, err := cli.run("player", "create", "--name", "Alice")
	require.NoError(t, err, "output: %s", output)
	alice := decode[response.Created](t, output)
	assert.Equal(t, int64(1), alice.ID)

	output, err = cli.run("player", "create", "--name", "Bob")
	require.NoError(t, err, "output: %s", output)
	bob := decode[response.Created](t, output)

	// Record a scored and an unscored game
	output, err = cli.run("game", "record", "--winner", "1", "--loser", "2", "--winner-score", "21", "--loser-score", "12")
	require.NoError(t, err, "output: %s", output)
	assert.Equal(t, int64(1), decode[response.Created](t, output).ID)

	output, err = cli.run("game", "record", "--winner", "1", "--loser", "2")
	require.NoError(t, err, "output: %s", output)

	// Leaderboard
	output, err = cli.run("leaderboard")
	require.NoError(t, err, "output: %s", output)
	board := decode[[]response.LeaderboardEntry](t, output)
	require.Len(t, board, 2)
	assert.Equal(t, alice.ID, board[0].ID)
	assert.Equal(t, bob.ID, board[1].ID)
	assert.Greater(t, board[0].EloRating, 1000.0)

	output, err = cli.run("leaderboard", "--stats")
	require.NoError(t, err, "output: %s", output)
	index := decode[response.Index](t, output)
	assert.Equal(t, 2, index.GlobalStats.TotalGames)
	assert.Equal(t, 33, index.GlobalStats.TotalPoints)

	// Profile
	output, err = cli.run("player", "show", "1")
	require.NoError(t, err, "output: %s", output)
	profile := decode[response.PlayerProfile](t, output)
	assert.Equal(t, "Alice", profile.Name)
	assert.Equal(t, 2, profile.GamesWon)
	assert.Len(t, profile.RecentGames, 2)

	// Head to head
	output, err = cli.run("h2h", "1", "2")
	require.NoError(t, err, "output: %s", output)
	h2h := decode[response.HeadToHead](t, output)
	assert.Equal(t, 2, h2h.TotalGameCount)
	assert.Equal(t, 2, h2h.Player1.LongestWinStreak)

	// Audit
	output, err = cli.run("audit")
	require.NoError(t, err, "output: %s", output)
	assert.True(t, decode[response.RatingAudit](t, output).Consistent)

	// Catalog
	output, err = cli.run("achievements")
	require.NoError(t, err, "output: %s", output)
	assert.NotEmpty(t, decode[[]response.Achievement](t, output))
}

func TestCLI_TextOutput(t *testing.T) {
	cli := startLadder(t)

	_, err := cli.run("player", "create", "--name", "Alice")
	require.NoError(t, err)
	_, err = cli.run("player", "create", "--name", "Bob")
	require.NoError(t, err)
	_, err = cli.run("game", "record", "--winner", "2", "--loser", "1")
	require.NoError(t, err)

	output, err := cli.runText("leaderboard")
	require.NoError(t, err, "output: %s", output)
	lines := strings.Split(strings.TrimSpace(output), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "Bob")
	assert.Contains(t, lines[1], "1016.0")

	output, err = cli.runText("player", "show", "2")
	require.NoError(t, err, "output: %s", output)
	assert.Contains(t, output, "Record: 1 won / 1 played")
	assert.Contains(t, output, "Warming Up")
}

func TestCLI_ErrorHandling(t *testing.T) {
	cli := startLadder(t)

	_, err := cli.run("player", "create", "--name", "Alice")
	require.NoError(t, err)

	// Duplicate name
	output, err := cli.run("player", "create", "--name", "ALICE")
	assert.Error(t, err)
	assert.Contains(t, output, "INVALID_REQUEST")

	// Unknown player
	output, err = cli.run("player", "show", "99")
	assert.Error(t, err)
	assert.Contains(t, output, "PLAYER_NOT_FOUND")

	// Self play
	output, err = cli.run("game", "record", "--winner", "1", "--loser", "1")
	assert.Error(t, err)
	assert.Contains(t, output, "SAME_PLAYER")

	// Half a score
	output, err = cli.run("game", "record", "--winner", "1", "--loser", "2", "--winner-score", "21")
	assert.Error(t, err)
	assert.Contains(t, output, "must be given together")

	// Bad id argument
	output, err = cli.run("h2h", "1", "x")
	assert.Error(t, err)
	assert.Contains(t, output, "invalid player id")

	// Bad output format
	output, err = cli.run("--output", "yaml", "health")
	assert.Error(t, err)
	assert.Contains(t, output, "--output")
}
