package review

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TobiSchelling/arabpress/internal/news"
)

func drafts(n int) []news.Draft {
	out := make([]news.Draft, n)
	for i := range out {
		out[i] = news.Draft{
			Title:    "خبر " + string(rune('A'+i)),
			Slug:     "khbr-" + string(rune('a'+i)),
			Category: news.Politics,
			Content:  "## مقدمة\nنص",
		}
	}
	return out
}

type fakeRecorder struct {
	verdicts []string
}

func (f *fakeRecorder) InsertReviewDecision(slug, title, verdict, reason string) error {
	f.verdicts = append(f.verdicts, slug+":"+verdict+":"+reason)
	return nil
}

func TestParseAnswer(t *testing.T) {
	for _, a := range []string{"", "o", "OUI", "y", " yes \n"} {
		assert.Equal(t, news.Approve, ParseAnswer(a), "answer %q", a)
	}
	for _, a := range []string{"s", "Skip"} {
		assert.Equal(t, news.Skip, ParseAnswer(a), "answer %q", a)
	}
	for _, a := range []string{"n", "non", "no", "maybe"} {
		assert.Equal(t, news.Reject, ParseAnswer(a), "answer %q", a)
	}
}

func TestReviewSkipStopsEarly(t *testing.T) {
	var out bytes.Buffer
	rec := &fakeRecorder{}
	g := NewGate(strings.NewReader("y\nn\ns\n"), &out).WithRecorder(rec)

	r, err := g.Review(drafts(5))
	require.NoError(t, err)

	require.Len(t, r.Approved, 1)
	require.Len(t, r.Rejected, 1)
	assert.Equal(t, "khbr-a", r.Approved[0].Slug)
	assert.Equal(t, "khbr-b", r.Rejected[0].Slug)
	assert.Equal(t, news.RejectedManually, r.Rejected[0].RejectionReason)
	assert.False(t, r.Rejected[0].RejectedAt.IsZero())
	assert.Equal(t, 3, r.Skipped)
	assert.Equal(t, []string{"khbr-a:approve:", "khbr-b:reject:rejected manually"}, rec.verdicts)

	assert.Contains(t, out.String(), "Article 3/5")
	assert.NotContains(t, out.String(), "Article 4/5")
	assert.Contains(t, out.String(), "Quality:")
}

func TestReviewEmptyAnswerApprovesAndEOFStops(t *testing.T) {
	var out bytes.Buffer
	r, err := NewGate(strings.NewReader("\n"), &out).Review(drafts(2))
	require.NoError(t, err)
	assert.Len(t, r.Approved, 1)
	assert.Empty(t, r.Rejected)
	assert.Equal(t, 1, r.Skipped)
}

func TestReviewLastAnswerWithoutNewline(t *testing.T) {
	var out bytes.Buffer
	r, err := NewGate(strings.NewReader("n"), &out).Review(drafts(1))
	require.NoError(t, err)
	assert.Len(t, r.Rejected, 1)
}

func TestReviewNothing(t *testing.T) {
	var out bytes.Buffer
	r, err := NewGate(strings.NewReader(""), &out).Review(nil)
	require.NoError(t, err)
	assert.Empty(t, r.Approved)
	assert.Contains(t, out.String(), "No articles to review")
}

func TestSaveResult(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, SaveResult(dir, &Result{}))

	got, err := LoadApproved(dir)
	require.NoError(t, err)
	assert.Empty(t, got)
	_, err = os.Stat(filepath.Join(dir, RejectedFile))
	assert.True(t, os.IsNotExist(err), "rejected file must not be written when empty")

	r := &Result{
		Approved: drafts(2),
		Rejected: []news.Rejected{{Draft: drafts(1)[0], RejectionReason: news.RejectedManually}},
	}
	require.NoError(t, SaveResult(dir, r))
	got, err = LoadApproved(dir)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.FileExists(t, filepath.Join(dir, RejectedFile))

	require.NoError(t, ClearApproved(dir))
	require.NoError(t, ClearApproved(dir))
	assert.NoFileExists(t, filepath.Join(dir, ApprovedFile))
}
