package target

import (
	"encoding/json"
	"io"
	"net/http"
	"os"

	"github.com/orcaman/writerseeker"
	"github.com/tagship/tagship/internal/dryrun"
	"github.com/tagship/tagship/internal/tagerr"
	"golang.org/x/xerrors"
)

func init() {
	Register("dockertrigger", dockerTriggerTarget)
}

type dockerTriggerPayload struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
	Ref   string `json:"ref"`
	SHA   string `json:"sha"`
}

// dockerTriggerTarget POSTs a webhook notifying a container build system that
// a tag is ready. The payload is buffered through writerseeker.WriterSeeker
// rather than bytes.Buffer so the *http.Request gets a seekable, re-readable
// body: req.GetBody rewinds it for net/http's built-in retry-on-redirect
// instead of requiring the caller to re-marshal the payload.
func dockerTriggerTarget(tc Context) error {
	url := os.Getenv("DOCKER_TRIGGER_URL")
	if url == "" {
		return &tagerr.MissingPrerequisite{Target: "dockertrigger", What: "DOCKER_TRIGGER_URL"}
	}

	payload, err := json.Marshal(dockerTriggerPayload{
		Owner: tc.Repo.Owner,
		Repo:  tc.Repo.Repo,
		Ref:   tc.Tag.Ref,
		SHA:   tc.Tag.SHA,
	})
	if err != nil {
		return xerrors.Errorf("dockertrigger: marshaling payload: %w", err)
	}

	return dryrun.PerformVoid(func() error {
		var ws writerseeker.WriterSeeker
		if _, err := ws.Write(payload); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(tc.Ctx, "POST", url, ws.Reader())
		if err != nil {
			return err
		}
		req.ContentLength = int64(len(payload))
		req.Header.Set("Content-Type", "application/json")
		req.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(ws.Reader()), nil
		}

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return xerrors.Errorf("dockertrigger: posting to %s: %w", url, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			return xerrors.Errorf("dockertrigger: %s: unexpected HTTP status: got %v", url, resp.Status)
		}

		tc.Logger.Infow("docker build triggered", "repo", tc.Repo.String(), "ref", tc.Tag.Ref, "url", url)
		return nil
	})
}
