// Package filesystem serves documents from a local directory.
//
// Source lists and loads the supported files (.txt, .docx, .pdf) of one
// directory, dispatching to the normaliser registry for text extraction.
// Watcher observes the directory with fsnotify and keeps indexes current,
// with a cron rescan as a backstop for missed events.
package filesystem
