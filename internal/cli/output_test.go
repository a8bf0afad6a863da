package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amgator/databucket-app/internal/rule"
	"github.com/amgator/databucket-app/internal/rulesql"
	"github.com/amgator/databucket-app/internal/store"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Success(map[string]int64{"deleted": 3})
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error("MALFORMED_RULE_TREE", "unknown operator \"around\"", nil)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "MALFORMED_RULE_TREE", resp.Error.Code)
	assert.Equal(t, "unknown operator \"around\"", resp.Error.Message)
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	err := formatter.Error("RECORD_NOT_FOUND", "no record 42 in scope", nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [RECORD_NOT_FOUND]")
	assert.Contains(t, buf.String(), "no record 42 in scope")
}

func TestOutputFormatter_VerboseLogGoesToErrWriter(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:    "json",
		Writer:    out,
		ErrWriter: errOut,
		Verbose:   true,
	}

	formatter.VerboseLog("Found %d CUE file(s)", 2)

	assert.Empty(t, out.String(), "verbose output must not corrupt JSON on stdout")
	assert.Contains(t, errOut.String(), "Found 2 CUE file(s)")
}

func TestOutputFormatter_VerboseLogDisabled(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	formatter.VerboseLog("should not appear")
	assert.Empty(t, buf.String())
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
		wantExit int
	}{
		{
			name:     "parse_error",
			err:      &rule.ParseError{Code: rule.ErrCodeAmbiguous, Message: "two encodings"},
			wantCode: "AMBIGUOUS_RULE_TREE",
			wantExit: ExitCommandError,
		},
		{
			name:     "compile_error",
			err:      &rulesql.CompileError{Code: rulesql.ErrCodeUnknownField, Field: "bogus"},
			wantCode: "UNKNOWN_FIELD",
			wantExit: ExitCommandError,
		},
		{
			name:     "store_error",
			err:      &store.StoreError{Code: store.ErrCodeRecordNotFound, ID: 42},
			wantCode: "RECORD_NOT_FOUND",
			wantExit: ExitFailure,
		},
		{
			name:     "wrapped_store_error",
			err:      fmt.Errorf("resolving bucket: %w", &store.StoreError{Code: store.ErrCodeBucketNotFound}),
			wantCode: "BUCKET_NOT_FOUND",
			wantExit: ExitFailure,
		},
		{
			name:     "load_error",
			err:      &LoadError{Code: ErrCodeNoFiles, Message: "no CUE files"},
			wantCode: ErrCodeNoFiles,
			wantExit: ExitCommandError,
		},
		{
			name:     "unknown_error",
			err:      errors.New("disk on fire"),
			wantCode: ErrCodeGeneric,
			wantExit: ExitFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, exit := ClassifyError(tt.err)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantExit, exit)
		})
	}
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad flag")))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain error")))

	wrapped := fmt.Errorf("outer: %w", WrapExitError(ExitCommandError, "inner", nil))
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))
}
