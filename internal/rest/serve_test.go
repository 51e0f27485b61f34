// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package rest

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/mlnoga/edgefix/internal/frame"
)

func init() { gin.SetMode(gin.TestMode) }

func post(t *testing.T, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	NewRouter().ServeHTTP(w, req)
	return w
}

// Changes into a fresh temporary directory for the duration of the test
func chdirTemp(t *testing.T) string {
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
	return dir
}

func writeTestFrame(t *testing.T, fileName string) {
	format := frame.Format{SampleType: frame.SampleInteger, BitsPerSample: 8, BytesPerSample: 1, NumPlanes: 1}
	f := frame.New(format, 8, 6)
	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			f.Planes[0].Set(x, y, 100+10*x)
		}
	}
	for x := 0; x < 8; x++ {
		f.Planes[0].Set(x, 0, 20)
	}
	if err := frame.WriteFile(fileName, f); err != nil {
		t.Fatal(err)
	}
}

func TestPing(t *testing.T) {
	w := httptest.NewRecorder()
	NewRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "pong") {
		t.Errorf("got %d %q", w.Code, w.Body.String())
	}
}

func TestIndex(t *testing.T) {
	w := httptest.NewRecorder()
	NewRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "/api/v1/fix") {
		t.Errorf("got %d %q", w.Code, w.Body.String())
	}
}

func TestFix(t *testing.T) {
	dir := chdirTemp(t)
	writeTestFrame(t, "in.png")

	w := post(t, "/api/v1/fix", `{"filePatterns":["*.png"],"continuity":{"top":[1]},"save":{"filePattern":"out%d.fits"}}`)
	body := w.Body.String()
	if w.Code != http.StatusOK || !strings.Contains(body, "Done.") {
		t.Fatalf("got %d %q", w.Code, body)
	}
	f, err := frame.ReadFile(filepath.Join(dir, "out0.fits"), 0, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	for x := 0; x < 8; x++ {
		if got := f.Planes[0].At(x, 0); got < 100 || got > 170 {
			t.Errorf("top sample %d is %d; want it lifted to the interior range", x, got)
		}
		if got, want := f.Planes[0].At(x, 1), 100+10*x; got != want {
			t.Errorf("interior sample %d is %d; want %d", x, got, want)
		}
	}
}

func TestFixRejectsPathsOutsideTree(t *testing.T) {
	chdirTemp(t)
	writeTestFrame(t, "in.png")
	w := post(t, "/api/v1/fix", `{"filePatterns":["*.png"],"save":{"filePattern":"../out%d.fits"}}`)
	if body := w.Body.String(); !strings.Contains(body, "outside current directory tree") || strings.Contains(body, "Done.") {
		t.Errorf("got %q", body)
	}

	w = post(t, "/api/v1/fix", `{"filePatterns":["*.png"]}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing save: got %d", w.Code)
	}
}

func TestSeamsAndRun(t *testing.T) {
	chdirTemp(t)
	writeTestFrame(t, "in.png")

	w := post(t, "/api/v1/seams", `{"filePatterns":["in.png"],"seams":{"label":"before"}}`)
	if body := w.Body.String(); !strings.Contains(body, "0: before seam plane 0 top") {
		t.Errorf("got %q", body)
	}

	w = post(t, "/api/v1/run", `{"filePatterns":["in.png"],"pipeline":{"type":"seq","active":true,"steps":[
		{"type":"continuity","top":[1]},{"type":"seams","label":"after"}]}}`)
	if body := w.Body.String(); !strings.Contains(body, "0: after seam plane 0 top") || !strings.Contains(body, "Done.") {
		t.Errorf("got %q", body)
	}

	w = post(t, "/api/v1/run", `{"filePatterns":["in.png"],"pipeline":{"type":"nope"}}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown operator: got %d", w.Code)
	}
}
