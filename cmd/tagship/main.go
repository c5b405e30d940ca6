// Command tagship runs the release-automation engine's webhook receiver and
// operational status page. Grounded on cmd/autobuilder/autobuilder.go's
// main(): flag-configured process, InterruptibleContext for signal-driven
// shutdown, a status HTML page rendered with text/template and disk-space
// figures from golang.org/x/sys/unix.Statfs.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sync"
	"text/template"
	"time"

	"github.com/tagship/tagship"
	"github.com/tagship/tagship/internal/config"
	"github.com/tagship/tagship/internal/dispatcher"
	"github.com/tagship/tagship/internal/hosting"
	"github.com/tagship/tagship/internal/logging"
	"github.com/tagship/tagship/internal/scheduler"
	"github.com/tagship/tagship/internal/tagcache"
	"github.com/tagship/tagship/internal/tagerr"
	"golang.org/x/sys/unix"
)

var (
	accessToken = flag.String("github_access_token", "", "oauth2 GitHub access token")
	listenAddr  = flag.String("listen_addr", ":3718", "address to serve webhooks and the status page on")
	releaseDir  = flag.String("release_dir", "/srv/tagship", "directory whose free space is reported on the status page")
)

// stats tracks a small amount of process-lifetime state for the status page,
// mirroring the teacher's a.status struct.
type stats struct {
	mu       sync.Mutex
	handled  int
	lastSeen time.Time
	lastRepo string
}

func (s *stats) record(repo string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handled++
	s.lastSeen = time.Now()
	s.lastRepo = repo
}

func (s *stats) snapshot() (int, time.Time, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handled, s.lastSeen, s.lastRepo
}

var statusTmpl = template.Must(template.New("").Funcs(template.FuncMap{
	"formatTimestamp": func(t time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return t.Format(time.RFC3339)
	},
	"formatBytes": func(b uint64) string {
		switch {
		case b > 1024*1024*1024:
			return fmt.Sprintf("%.2f GiB", float64(b)/1024/1024/1024)
		case b > 1024*1024:
			return fmt.Sprintf("%.2f MiB", float64(b)/1024/1024)
		case b > 1024:
			return fmt.Sprintf("%.2f KiB", float64(b)/1024)
		default:
			return fmt.Sprintf("%d bytes", b)
		}
	},
}).Parse(`<!DOCTYPE html>
<head>
<meta charset="utf-8">
<title>tagship status</title>
</head>
<body>
<h1>tagship</h1>
<p>
events handled: {{ .Handled }}<br>
last event: {{ formatTimestamp .LastSeen }} ({{ .LastRepo }})<br>
free disk space ({{ .ReleaseDir }}): {{ formatBytes .DiskSpace }}<br>
</p>
</body>
</html>`))

func serveStatusPage(st *stats, dir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		handled, lastSeen, lastRepo := st.snapshot()

		var fs unix.Statfs_t
		var diskSpace uint64
		if err := unix.Statfs(dir, &fs); err != nil {
			log.Println(err)
		} else {
			diskSpace = fs.Bavail * uint64(fs.Bsize)
		}

		var buf bytes.Buffer
		err := statusTmpl.Execute(&buf, struct {
			Handled    int
			LastSeen   time.Time
			LastRepo   string
			ReleaseDir string
			DiskSpace  uint64
		}{handled, lastSeen, lastRepo, dir, diskSpace})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		io.Copy(w, &buf)
	}
}

// webhookEnvelope covers the three event shapes of spec.md §6: create,
// delete, and status. The hosting platform's webhook layer tags each
// delivery with an X-GitHub-Event-style header; here the event kind is
// carried explicitly in the JSON body under "kind" to keep the receiver
// transport-agnostic.
type webhookEnvelope struct {
	Kind  string `json:"kind"`
	Owner string `json:"owner"`
	Repo  string `json:"repo"`

	Ref     string `json:"ref"`
	RefType string `json:"ref_type"`

	SHA string `json:"sha"`
}

func serveWebhook(d *dispatcher.Dispatcher, st *stats) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var env webhookEnvelope
		if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		repo := tagship.RepoKey{Owner: env.Owner, Repo: env.Repo}
		st.record(repo.String())

		ctx := r.Context()
		var err error
		switch env.Kind {
		case "create":
			err = d.HandleCreate(ctx, dispatcher.CreateEvent{Repo: repo, RefType: env.RefType, Ref: env.Ref})
		case "delete":
			err = d.HandleDelete(ctx, dispatcher.DeleteEvent{Repo: repo, RefType: env.RefType, Ref: env.Ref})
		case "status":
			err = d.HandleStatus(ctx, dispatcher.StatusEvent{Repo: repo, SHA: env.SHA})
		default:
			http.Error(w, "unknown event kind: "+env.Kind, http.StatusBadRequest)
			return
		}
		if err != nil {
			log.Printf("handling %s event for %s: %v", env.Kind, repo, err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

func main() {
	flag.Parse()
	ctx, cancel := tagship.InterruptibleContext()
	defer cancel()

	logger, err := logging.New()
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}

	client := hosting.NewGitHubClient(ctx, *accessToken)
	tags := tagcache.New(client)
	sched := scheduler.New(client, logger)
	loader := func(ctx context.Context, key tagship.RepoKey) (*config.Config, error) {
		content, err := client.GetContent(ctx, key, "release.yml", "")
		if err != nil {
			return nil, err
		}
		if content == nil {
			return nil, &tagerr.ConfigAbsent{Repo: key.String()}
		}
		return config.LoadBytes(content.Data)
	}
	disp := dispatcher.New(client, tags, sched, loader, logger)

	st := &stats{}
	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", serveWebhook(disp, st))
	mux.HandleFunc("/status", serveStatusPage(st, *releaseDir))

	srv := &http.Server{Addr: *listenAddr, Handler: mux}
	tagship.RegisterAtExit(func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("%+v", err)
		}
	}()

	<-ctx.Done()
	tagship.RunAtExit()
	os.Exit(0)
}
