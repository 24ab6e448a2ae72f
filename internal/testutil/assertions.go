package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// AssertLogged checks that a text-format log line carries msg and every
// key=value pair given in attrs.
func AssertLogged(t *testing.T, logs, msg string, attrs ...string) {
	t.Helper()
	require.True(t, len(attrs)%2 == 0, "attrs must be key/value pairs")

	quoted := fmt.Sprintf("msg=%q", msg)
	for _, line := range strings.Split(logs, "\n") {
		if !strings.Contains(line, quoted) && !strings.Contains(line, "msg="+msg+" ") {
			continue
		}
		ok := true
		for i := 0; i < len(attrs); i += 2 {
			if !strings.Contains(line, attrs[i]+"="+attrs[i+1]) {
				ok = false
				break
			}
		}
		if ok {
			return
		}
	}
	require.Failf(t, "log line not found", "no %s line with attrs %v in:\n%s", quoted, attrs, logs)
}
