package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runCLI executes the root command with the given args and returns stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// decodeOK parses a JSON-format response and requires ok status.
func decodeOK(t *testing.T, output string) any {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp), "output: %s", output)
	require.Equal(t, "ok", resp.Status, "output: %s", output)
	return resp.Data
}

func TestCLI_RecordLifecycle(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cli.db")
	base := []string{"--db", dbPath, "--format", "json", "--user", "tester"}
	inBucket := append(base, "--bucket", "goods")

	out, err := runCLI(t, append(base, "bucket", "create", "goods")...)
	require.NoError(t, err)
	created := decodeOK(t, out).(map[string]any)
	assert.Equal(t, float64(1), created["id"])

	out, err = runCLI(t, append(inBucket, "tag", "create", "urgent")...)
	require.NoError(t, err)
	decodeOK(t, out)

	out, err = runCLI(t, append(inBucket,
		"create", "--tag", "1", "--properties", `{"status": "new", "weight": 12.5}`)...)
	require.NoError(t, err)
	record := decodeOK(t, out).(map[string]any)
	assert.Equal(t, float64(1), record["id"])
	assert.Equal(t, "tester", record["createdBy"])

	out, err = runCLI(t, append(inBucket,
		"get", "--rules", `{"$.status": "new"}`)...)
	require.NoError(t, err)
	page := decodeOK(t, out).(map[string]any)
	assert.Equal(t, float64(1), page["total"])
	assert.Len(t, page["data"], 1)

	out, err = runCLI(t, append(inBucket, "get", "1", "--columns", "id,$.weight")...)
	require.NoError(t, err)
	projected := decodeOK(t, out).(map[string]any)
	assert.Equal(t, float64(12.5), projected["$.weight"])
	assert.Len(t, projected, 2)

	out, err = runCLI(t, append(inBucket,
		"modify", "--id", "1", "--set", `{"status": "done"}`)...)
	require.NoError(t, err)
	modified := decodeOK(t, out).(map[string]any)
	assert.Equal(t, float64(1), modified["modified"])

	out, err = runCLI(t, append(inBucket,
		"reserve", "--rules", `{"$.status": "done"}`)...)
	require.NoError(t, err)
	claim := decodeOK(t, out).(map[string]any)
	assert.NotEmpty(t, claim["token"])
	claimed := claim["record"].(map[string]any)
	assert.Equal(t, true, claimed["reserved"])
	assert.Equal(t, "tester", claimed["owner"])

	out, err = runCLI(t, append(inBucket, "delete", "--id", "1")...)
	require.NoError(t, err)
	deleted := decodeOK(t, out).(map[string]any)
	assert.Equal(t, float64(1), deleted["deleted"])
}

func TestCLI_ReserveNoMatch(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cli.db")
	base := []string{"--db", dbPath, "--format", "json"}

	_, err := runCLI(t, append(base, "bucket", "create", "goods")...)
	require.NoError(t, err)

	out, err := runCLI(t, append(base, "--bucket", "goods",
		"reserve", "--rules", `{"$.status": "nope"}`)...)
	require.NoError(t, err)
	claim := decodeOK(t, out).(map[string]any)
	assert.Equal(t, "No data matches the rules!", claim["message"])
}

func TestCLI_SavedFilterRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cli.db")
	base := []string{"--db", dbPath, "--format", "json"}

	_, err := runCLI(t, append(base, "bucket", "create", "goods")...)
	require.NoError(t, err)
	_, err = runCLI(t, append(base, "--bucket", "goods",
		"create", "--properties", `{"status": "new"}`)...)
	require.NoError(t, err)
	_, err = runCLI(t, append(base, "--bucket", "goods",
		"create", "--properties", `{"status": "done"}`)...)
	require.NoError(t, err)

	out, err := runCLI(t, append(base,
		"filters", "save", "--name", "fresh", "--rules", `{"$.status": "new"}`)...)
	require.NoError(t, err)
	saved := decodeOK(t, out).(map[string]any)
	filterID := saved["id"].(float64)
	require.Equal(t, float64(1), filterID)

	out, err = runCLI(t, append(base, "--bucket", "goods",
		"get", "--filter", "1")...)
	require.NoError(t, err)
	page := decodeOK(t, out).(map[string]any)
	assert.Equal(t, float64(1), page["total"])

	out, err = runCLI(t, append(base, "filters", "list")...)
	require.NoError(t, err)
	list := decodeOK(t, out).([]any)
	require.Len(t, list, 1)
	assert.Equal(t, "fresh", list[0].(map[string]any)["name"])

	_, err = runCLI(t, append(base, "filters", "delete", "1")...)
	require.NoError(t, err)

	_, err = runCLI(t, append(base, "--bucket", "goods", "get", "--filter", "1")...)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestCLI_LoadFiltersFromCUE(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cli.db")
	base := []string{"--db", dbPath, "--format", "json"}

	dir := t.TempDir()
	writeCUEFile(t, dir, "filters.cue", `
filter: fresh: {
	description: "unprocessed records"
	rules: "$.status": "new"
}
`)

	out, err := runCLI(t, append(base, "filters", "load", dir)...)
	require.NoError(t, err)
	decodeOK(t, out)

	out, err = runCLI(t, append(base, "filters", "list")...)
	require.NoError(t, err)
	list := decodeOK(t, out).([]any)
	require.Len(t, list, 1)
	assert.Equal(t, "fresh", list[0].(map[string]any)["name"])
}

func TestCLI_ReleaseReturnsRecordsToPool(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cli.db")
	base := []string{"--db", dbPath, "--format", "json", "--user", "worker1"}

	_, err := runCLI(t, append(base, "bucket", "create", "goods")...)
	require.NoError(t, err)
	inBucket := append(base, "--bucket", "goods")

	_, err = runCLI(t, append(inBucket, "create", "--properties", `{"status": "new"}`)...)
	require.NoError(t, err)

	out, err := runCLI(t, append(inBucket, "reserve")...)
	require.NoError(t, err)
	claim := decodeOK(t, out).(map[string]any)
	require.Equal(t, true, claim["record"].(map[string]any)["reserved"])

	out, err = runCLI(t, append(inBucket, "modify", "--id", "1", "--release")...)
	require.NoError(t, err)
	released := decodeOK(t, out).(map[string]any)
	assert.Equal(t, float64(1), released["modified"])

	out, err = runCLI(t, append(inBucket, "get", "1")...)
	require.NoError(t, err)
	record := decodeOK(t, out).(map[string]any)
	assert.Equal(t, false, record["reserved"])
	assert.Nil(t, record["owner"])

	// Released records are claimable again.
	out, err = runCLI(t, append(inBucket, "reserve")...)
	require.NoError(t, err)
	claim = decodeOK(t, out).(map[string]any)
	assert.Equal(t, true, claim["record"].(map[string]any)["reserved"])
}

func TestCLI_DuplicateFilterRejected(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cli.db")
	base := []string{"--db", dbPath, "--format", "json"}

	_, err := runCLI(t, append(base,
		"filters", "save", "--name", "fresh", "--rules", `{"$.status": "new"}`)...)
	require.NoError(t, err)

	// The same tree written with an explicit operator is still the same
	// filter: identity follows the canonical encoding, not the wire text.
	out, err := runCLI(t, append(base,
		"filters", "save", "--name", "fresh2", "--rules", `{"$.status": ["=", "new"]}`)...)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "already stores these rules")

	out, err = runCLI(t, append(base, "filters", "list")...)
	require.NoError(t, err)
	list := decodeOK(t, out).([]any)
	require.Len(t, list, 1)
	assert.Equal(t, "fresh", list[0].(map[string]any)["name"])

	// A different tree saves fine.
	_, err = runCLI(t, append(base,
		"filters", "save", "--name", "stale", "--rules", `{"$.status": "stale"}`)...)
	require.NoError(t, err)
}

func TestCLI_ReserveScopedToTag(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cli.db")
	base := []string{"--db", dbPath, "--format", "json", "--user", "worker1"}

	_, err := runCLI(t, append(base, "bucket", "create", "goods")...)
	require.NoError(t, err)
	inBucket := append(base, "--bucket", "goods")

	out, err := runCLI(t, append(inBucket, "tag", "create", "urgent")...)
	require.NoError(t, err)
	tag := decodeOK(t, out).(map[string]any)
	require.Equal(t, float64(1), tag["id"])

	_, err = runCLI(t, append(inBucket, "create", "--properties", `{"status": "new"}`)...)
	require.NoError(t, err)
	_, err = runCLI(t, append(inBucket,
		"create", "--tag", "1", "--properties", `{"status": "new"}`)...)
	require.NoError(t, err)

	// Only the tagged record is eligible, even with room in the limit.
	out, err = runCLI(t, append(inBucket, "reserve", "--tag", "1", "--limit", "5")...)
	require.NoError(t, err)
	claim := decodeOK(t, out).(map[string]any)
	claimed := claim["record"].(map[string]any)
	assert.Equal(t, float64(2), claimed["id"])
	assert.Equal(t, float64(1), claimed["tagId"])
}

func TestCLI_ErrorsAreStructured(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cli.db")
	base := []string{"--db", dbPath, "--format", "json"}

	_, err := runCLI(t, append(base, "bucket", "create", "goods")...)
	require.NoError(t, err)
	inBucket := append(base, "--bucket", "goods")

	t.Run("malformed_rules", func(t *testing.T) {
		out, err := runCLI(t, append(inBucket, "get", "--rules", `{"$.status"`)...)
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))

		var resp CLIResponse
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		require.NotNil(t, resp.Error)
		assert.Equal(t, "MALFORMED_RULE_TREE", resp.Error.Code)
	})

	t.Run("ambiguous_target", func(t *testing.T) {
		out, err := runCLI(t, append(inBucket,
			"get", "--id", "1", "--rules", `{"$.status": "new"}`)...)
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))

		var resp CLIResponse
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		require.NotNil(t, resp.Error)
		assert.Equal(t, "AMBIGUOUS_RULE_TREE", resp.Error.Code)
	})

	t.Run("missing_bucket_flag", func(t *testing.T) {
		_, err := runCLI(t, append(base, "get")...)
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})

	t.Run("unknown_bucket", func(t *testing.T) {
		out, err := runCLI(t, append(base, "--bucket", "nope", "get")...)
		require.Error(t, err)
		assert.Equal(t, ExitFailure, GetExitCode(err))

		var resp CLIResponse
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		require.NotNil(t, resp.Error)
		assert.Equal(t, "BUCKET_NOT_FOUND", resp.Error.Code)
	})

	t.Run("target_owner_needs_admin", func(t *testing.T) {
		out, err := runCLI(t, append(inBucket,
			"reserve", "--target-owner", "worker2")...)
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))

		var resp CLIResponse
		require.NoError(t, json.Unmarshal([]byte(out), &resp))
		require.NotNil(t, resp.Error)
		assert.Equal(t, "TARGET_OWNER_FORBIDDEN", resp.Error.Code)
	})

	t.Run("delete_without_target", func(t *testing.T) {
		_, err := runCLI(t, append(inBucket, "delete")...)
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})
}
