package main

import (
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/spf13/cobra"
)

var dbPath string

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Inspect the badger store",
}

var dbKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List all keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *badger.DB) error {
			return db.View(func(txn *badger.Txn) error {
				opts := badger.DefaultIteratorOptions
				opts.PrefetchValues = false
				it := txn.NewIterator(opts)
				defer it.Close()

				var keys []string
				for it.Rewind(); it.Valid(); it.Next() {
					keys = append(keys, string(it.Item().Key()))
				}
				sort.Strings(keys)

				fmt.Printf("Found %d keys:\n", len(keys))
				for i, key := range keys {
					fmt.Printf("%3d. %s\n", i+1, key)
				}
				return nil
			})
		})
	},
}

var dbGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a key's value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *badger.DB) error {
			return db.View(func(txn *badger.Txn) error {
				item, err := txn.Get([]byte(args[0]))
				if err != nil {
					return fmt.Errorf("key not found: %s", args[0])
				}
				val, err := item.ValueCopy(nil)
				if err != nil {
					return err
				}
				fmt.Println(string(val))
				return nil
			})
		})
	},
}

func withDB(fn func(*badger.DB) error) error {
	opts := badger.DefaultOptions(dbPath).WithLogger(nil)
	opts.ReadOnly = true

	db, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("failed to open badger db: %w", err)
	}
	defer db.Close()
	return fn(db)
}

func init() {
	dbCmd.PersistentFlags().StringVar(&dbPath, "path", "data/derby", "badger directory")
	dbCmd.AddCommand(dbKeysCmd, dbGetCmd)
	rootCmd.AddCommand(dbCmd)
}
