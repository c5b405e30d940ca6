package target

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"strings"
	"text/template"

	"github.com/tagship/tagship"
	"github.com/tagship/tagship/internal/dryrun"
	"golang.org/x/xerrors"
)

func init() {
	Register("formula", formulaTarget)
}

const defaultFormulaTemplate = `class {{.ClassName}} < Formula
  url "{{.URL}}"
  sha256 "{{.SHA256}}"
  version "{{.Version}}"
end
`

type formulaData struct {
	ClassName string
	URL       string
	SHA256    string
	Version   string
}

// formulaTarget computes the sha256 of the release's first downloaded
// artifact, templates a Homebrew-style formula, and commits or updates it in
// a formula repository addressed by the "repo" and "path" options. An absent
// "repo" option falls back to the release's own repository.
func formulaTarget(tc Context) error {
	paths, err := tc.Store.DownloadAll(tc.Ctx)
	if err != nil {
		return xerrors.Errorf("formula: downloading artifacts: %w", err)
	}
	if len(paths) == 0 {
		tc.Logger.Infow("formula: no artifacts to checksum, skipping", "repo", tc.Repo.String())
		return nil
	}

	sum, err := sha256File(paths[0])
	if err != nil {
		return xerrors.Errorf("formula: hashing %s: %w", paths[0], err)
	}

	tmplText, _ := tc.Options["template"].(string)
	if tmplText == "" {
		tmplText = defaultFormulaTemplate
	}
	tmpl, err := template.New("formula").Parse(tmplText)
	if err != nil {
		return xerrors.Errorf("formula: parsing template: %w", err)
	}

	className, _ := tc.Options["className"].(string)
	if className == "" {
		className = tc.Repo.Repo
	}
	url, _ := tc.Options["url"].(string)

	var buf bytes.Buffer
	data := formulaData{ClassName: className, URL: url, SHA256: sum, Version: tc.Tag.Ref}
	if err := tmpl.Execute(&buf, data); err != nil {
		return xerrors.Errorf("formula: rendering template: %w", err)
	}

	formulaPath, _ := tc.Options["path"].(string)
	if formulaPath == "" {
		formulaPath = "Formula/" + tc.Repo.Repo + ".rb"
	}
	formulaRepo := tc.Repo
	if repoOpt, ok := tc.Options["repo"].(string); ok && repoOpt != "" {
		formulaRepo = parseRepoSlug(repoOpt, tc.Repo)
	}

	message := "Update " + tc.Repo.Repo + " to " + tc.Tag.Ref

	_, err = dryrun.Perform(func() (struct{}, error) {
		existing, err := tc.Hosting.GetContent(tc.Ctx, formulaRepo, formulaPath, "")
		if err != nil {
			return struct{}{}, err
		}
		if existing == nil {
			return struct{}{}, tc.Hosting.CreateFile(tc.Ctx, formulaRepo, formulaPath, message, buf.Bytes(), "")
		}
		return struct{}{}, tc.Hosting.UpdateFile(tc.Ctx, formulaRepo, formulaPath, message, buf.Bytes(), existing.SHA, "")
	}, nil)
	if err != nil {
		return xerrors.Errorf("formula: publishing %s: %w", formulaPath, err)
	}

	tc.Logger.Infow("formula updated", "repo", formulaRepo.String(), "path", formulaPath, "sha256", sum)
	return nil
}

func sha256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func parseRepoSlug(slug string, fallback tagship.RepoKey) tagship.RepoKey {
	owner, repo, ok := strings.Cut(slug, "/")
	if !ok {
		return fallback
	}
	return tagship.RepoKey{Owner: owner, Repo: repo}
}
