// Copyright 2018 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type testWriter struct {
	lines []string
	fail  bool
}

func (w *testWriter) Write(bytes []byte) (int, error) {
	if w.fail {
		return 0, fmt.Errorf("simulated failure")
	}
	w.lines = append(w.lines, string(bytes))
	return len(bytes), nil
}

func TestDropMessages(t *testing.T) {
	tw := &testWriter{}
	w := Writer{Next: tw}
	if _, err := w.Write([]byte("line 1\n")); err != nil {
		t.Fatalf("Write failed, err: %v", err)
	}

	tw.fail = true
	if _, err := w.Write([]byte("error\n")); err == nil {
		t.Fatalf("Write should have failed")
	}
	if _, err := w.Write([]byte("error\n")); err == nil {
		t.Fatalf("Write should have failed")
	}

	tw.fail = false
	if _, err := w.Write([]byte("line 2\n")); err != nil {
		t.Fatalf("Write failed, err: %v", err)
	}

	expected := []string{
		"line 1\n",
		"\n*** Dropped 2 log messages ***\n",
		"line 2\n",
	}
	if diff := cmp.Diff(expected, tw.lines); diff != "" {
		t.Errorf("unexpected lines (-want +got):\n%s", diff)
	}
}

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	l := &BasicLogger{Level: Info, Emitter: ConsoleEmitter{&Writer{Next: &buf}}}
	l.Debugf("hidden %d", 1)
	l.Infof("shown %d", 2)
	l.Warningf("shown %d", 3)
	l.SetLevel(Debug)
	l.Debugf("shown %d", 4)

	want := "[INFO]: shown 2\n[WARNING]: shown 3\n[DEBUG]: shown 4\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("unexpected output (-want +got):\n%s", diff)
	}
}

func TestGoogleEmitter(t *testing.T) {
	var buf bytes.Buffer
	e := GoogleEmitter{&Writer{Next: &buf}}
	ts := time.Date(2026, time.March, 7, 9, 4, 5, 123456000, time.UTC)
	e.Emit(0, Warning, ts, "mapped %d pages", 3)

	re := regexp.MustCompile(`^W0307 09:04:05\.123456 +\d+ log_test\.go:\d+\] mapped 3 pages\n$`)
	if got := buf.String(); !re.MatchString(got) {
		t.Errorf("got %q, want match for %q", got, re)
	}
}

func TestRateLimited(t *testing.T) {
	var buf bytes.Buffer
	base := &BasicLogger{Level: Debug, Emitter: ConsoleEmitter{&Writer{Next: &buf}}}
	rl := RateLimitedLogger(base, time.Hour, 2)
	for i := 0; i < 10; i++ {
		rl.Debugf("page %d", i)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if diff := cmp.Diff([]string{"[DEBUG]: page 0", "[DEBUG]: page 1"}, lines); diff != "" {
		t.Errorf("unexpected output (-want +got):\n%s", diff)
	}
}

func TestNewEmitter(t *testing.T) {
	for _, format := range []string{"text", "json", "console"} {
		if _, err := NewEmitter(format, &bytes.Buffer{}); err != nil {
			t.Errorf("NewEmitter(%q) failed: %v", format, err)
		}
	}
	if _, err := NewEmitter("json-k8s", &bytes.Buffer{}); err == nil {
		t.Errorf("NewEmitter(json-k8s) succeeded")
	}
}
