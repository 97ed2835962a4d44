// Copyright 2026 tinyai Authors
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

package vocab

import (
	"bytes"
	"strings"
	"testing"

	"github.com/TheLakeMan/tinyai/errdefs"
)

func TestReadAssignsInsertionOrder(t *testing.T) {
	src := `# vocabulary
the 100

cat 40
sat 12
`
	v, err := Read(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if v.Size() != 7 {
		t.Fatalf("Size = %d, want 7 (4 reserved + 3)", v.Size())
	}
	if got := v.ID("the"); got != 4 {
		t.Errorf("ID(the) = %d, want 4", got)
	}
	if got := v.ID("sat"); got != 6 {
		t.Errorf("ID(sat) = %d, want 6", got)
	}
	if got := v.ID("missing"); got != UNK {
		t.Errorf("ID(missing) = %d, want UNK", got)
	}
	if got := v.Token(BOS); got != "<bos>" {
		t.Errorf("Token(BOS) = %q", got)
	}
}

func TestReservedIDs(t *testing.T) {
	v := New()
	checks := []struct {
		id   int
		text string
	}{{UNK, "<unk>"}, {BOS, "<bos>"}, {EOS, "<eos>"}, {PAD, "<pad>"}}
	for _, c := range checks {
		if got := v.Token(c.id); got != c.text {
			t.Errorf("Token(%d) = %q, want %q", c.id, got, c.text)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	v := New()
	v.Add("alpha", 3)
	v.Add("beta", 2)

	var buf bytes.Buffer
	if err := v.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	back, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if back.Size() != v.Size() {
		t.Fatalf("round trip size %d, want %d", back.Size(), v.Size())
	}
	if back.ID("alpha") != v.ID("alpha") || back.ID("beta") != v.ID("beta") {
		t.Error("ids changed across round trip")
	}
}

func TestMalformedLine(t *testing.T) {
	_, err := Read(strings.NewReader("token-without-frequency\n"))
	if err == nil {
		t.Fatal("malformed line accepted")
	}
	if !strings.Contains(err.Error(), errdefs.ErrSchemaMismatch.Error()) {
		t.Errorf("error %v does not wrap schema mismatch", err)
	}
}
