// Package cli provides the interactive gophmarks command-line client.
//
// App renders the Store's projected view and forwards user commands to it.
// A background watcher prints session changes and user-visible messages as
// they happen, including those caused by the change feed or by sign-in
// completing in the browser.
//
// Commands:
//   - help               show available commands
//   - login [provider]   start browser sign-in (default provider from config)
//   - logout             sign out
//   - whoami             show the signed-in identity
//   - list | l           list bookmarks, newest first
//   - add [title] [url]  create a bookmark (prompts for missing fields)
//   - delete <id>        delete a bookmark
//   - reload             reload the list from the backend
//   - exit | quit        leave the program
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
