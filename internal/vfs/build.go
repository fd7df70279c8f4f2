package vfs

import (
	"github.com/dshills/retroweb/internal/content"
)

// Build renders a content snapshot into a virtual filesystem: one .txt
// file per project under /projects and per post under /blog, with line
// endings normalized to CRLF.
func Build(snap *content.Snapshot) *Snapshot {
	fs := New()

	projects := fs.AddDir(RootIndex, "projects")
	for _, p := range snap.Projects {
		fs.AddFile(projects, p.URL+".txt", NewFile(content.CRLF(p.Text())))
	}

	blog := fs.AddDir(RootIndex, "blog")
	for _, p := range snap.Posts {
		fs.AddFile(blog, p.URL+".txt", NewFile(content.CRLF(p.Text())))
	}

	return fs
}
