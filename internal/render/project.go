package render

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/CageChen/syntaxia/internal/errs"
	"github.com/CageChen/syntaxia/internal/fs"
	"github.com/CageChen/syntaxia/internal/highlight"
	"github.com/CageChen/syntaxia/internal/sandbox"
	"github.com/CageChen/syntaxia/internal/tree"
)

const readmeFile = "README.md"

// project builds the description of the first-level directory dir from its
// README.md and ABOUT files. Missing or unreadable files are skipped.
func (r *Renderer) project(ctx context.Context, dir string) *Project {
	proj := &Project{Name: dir, Tags: []string{}}

	readme := sandbox.Join(dir, readmeFile)
	if info, err := r.fsys.Stat(readme); err == nil && !info.IsDir && !r.walker.Hidden(readme, false) {
		res, err := r.RenderPath(ctx, readme)
		if rendered, ok := res.(*Rendered); ok && err == nil && rendered.Kind == KindMarkdown {
			proj.Readme = rendered
			proj.Source = readmeFile
		} else {
			r.logger.Debug("readme not rendered", zap.String("path", readme), zap.Error(err))
		}
	}

	about := sandbox.Join(dir, tree.AboutFile)
	if err := fs.Contained(r.fsys, about); err != nil {
		if errs.KindOf(err) != errs.NotFound {
			r.logger.Debug("ABOUT skipped", zap.String("path", about), zap.Error(err))
		}
		return proj
	}
	if info, err := r.fsys.Stat(about); err == nil && !info.IsDir && info.Size <= r.classifier.MaxFileSize() {
		data, err := r.fsys.ReadFile(about)
		if err != nil {
			r.logger.Debug("read ABOUT failed", zap.String("path", about), zap.Error(err))
			return proj
		}
		text, err := highlight.Decode(data)
		if err != nil {
			r.logger.Debug("undecodable ABOUT", zap.String("path", about), zap.Error(err))
			return proj
		}
		proj.Tags, proj.About = ParseAbout(text)
	}
	return proj
}

// ParseAbout splits an ABOUT file into tags, the lines starting with "#",
// and the first non-blank line that is not a tag.
func ParseAbout(text string) (tags []string, about string) {
	tags = []string{}
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "#"):
			if tag := strings.TrimSpace(strings.Trim(trimmed, "#")); tag != "" {
				tags = append(tags, tag)
			}
		case trimmed != "" && about == "":
			about = trimmed
		}
	}
	return tags, about
}
