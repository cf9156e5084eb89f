// Command inspect dumps messenger records from a badger store in a readable
// table. It opens the database read-only with the lock guard bypassed, so it
// works against a store a running server still holds.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"

	"github.com/poryaazizi7428/global-private-messenger/domain"
)

func main() {
	dbPath := flag.String("db", "/tmp/messenger", "Path to badger DB")
	// msg: by default so the index entries msgidx: stay out of the way
	prefix := flag.String("prefix", "msg:", "Prefix to scan (msg:, conv:, user:)")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	header := fmt.Sprintf(" Scanning %s with prefix %q ", *dbPath, *prefix)
	fmt.Println(color.New(color.BgBlack, color.FgCyan).Render(header))

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Type", "Timestamp", "Entity ID", "Detail", "Flags"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			key := string(item.Key())

			if strings.HasPrefix(key, "msgidx:") {
				continue
			}

			err := item.Value(func(v []byte) error {
				table.Append(rowFor(key, v))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	table.Render()
}

func rowFor(key string, value []byte) []string {
	switch {
	case strings.HasPrefix(key, "msg:"):
		var msg domain.Message
		if err := json.Unmarshal(value, &msg); err != nil {
			return rawRow(key, err)
		}
		flags := ""
		if msg.IsEdited {
			flags += "edited "
		}
		if msg.IsDeleted {
			flags += "deleted "
		}
		if len(msg.Reactions) > 0 {
			flags += fmt.Sprintf("%v", msg.Reactions)
		}
		return []string{key, "MSG", msg.CreatedAt.Format(time.TimeOnly),
			fmt.Sprintf("%d", msg.ID), truncate(msg.Content, 48), flags}

	case strings.HasPrefix(key, "conv:"):
		var conv domain.Conversation
		if err := json.Unmarshal(value, &conv); err != nil {
			return rawRow(key, err)
		}
		kind := "direct"
		if conv.IsGroup {
			kind = "group"
		}
		return []string{key, "CONV", conv.CreatedAt.Format(time.TimeOnly),
			truncate(conv.ID, 8), truncate(conv.Title, 48),
			fmt.Sprintf("%s members=%d", kind, len(conv.Members))}

	case strings.HasPrefix(key, "user:"):
		var user domain.User
		if err := json.Unmarshal(value, &user); err != nil {
			return rawRow(key, err)
		}
		return []string{key, "USER", user.LastSeen.Format(time.TimeOnly),
			truncate(user.ID, 8), user.Username, user.DisplayName}

	default:
		return []string{key, "RAW", "", "", truncate(string(value), 48), ""}
	}
}

func rawRow(key string, err error) []string {
	return []string{key, "?", "", "", fmt.Sprintf("unmarshal error: %v", err), ""}
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n] + "…"
	}
	return s
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true).
		WithValueLogFileSize(10 * 1024 * 1024)

	return badger.Open(opts)
}
