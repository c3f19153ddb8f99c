// Package storage manages a user's archive directory.
//
// Deduplication is purely by file name: Exists reports whether a name is
// present and nothing else is tracked between runs. Media is written with
// Save, which streams into a temporary file in the same directory and
// renames it into place, so a half-written download is never mistaken for
// a finished one. Text is written with AppendText and is never deduplicated;
// re-running an archive appends the same lines again.
//
// Usage:
//
//	store, err := storage.NewManager(filepath.Join(base, username), cfg.Output.DirMode(), cfg.Output.FileMode())
//	if !store.Exists(name) {
//	    err = store.Save(resp.Body, name)
//	}
//	err = store.AppendText(textName, "hello", "world")
package storage
