// Package storage provides SQLite-based persistence for searchable content.
//
// The storage layer manages:
//   - Content items of every kind (articles, episodes, seasons, playlists,
//     team members, FAQs, privacy and terms sections)
//   - Reader profiles used for personalized recommendations
//   - A small key-value table (search history)
//
// # Database Schema
//
// Tables:
//   - documents: one row per item, keyed by (collection, id). Title, summary
//     and body are stored as columns for LIKE matching; the full item is kept
//     as a JSON payload and decoded back into its concrete Go type.
//   - users: reader profiles, interests encoded as a JSON array
//   - kv: opaque values by key
//   - schema_version: applied migrations
//
// Timestamps are Unix seconds so date cutoffs compare as integers across
// drivers.
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage("content.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	err = db.UpsertItem(ctx, &types.Article{ID: "a1", Title: "ذكاء اصطناعي"})
//
//	items, err := db.ListItems(ctx, types.KindArticle, storage.ContentQuery{
//	    Pattern: "ذكاء",
//	    Since:   time.Now().AddDate(0, -1, 0),
//	    Limit:   20,
//	})
//
// # Transactions
//
// Use transactions for atomic bulk imports:
//
//	tx, err := db.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	for _, item := range items {
//	    if err := tx.UpsertItem(ctx, item); err != nil {
//	        return err
//	    }
//	}
//	return tx.Commit()
//
// # Build Modes
//
// The default build uses modernc.org/sqlite (pure Go). Building with
// -tags sqlite_vec switches to github.com/mattn/go-sqlite3 (cgo).
//
// # Errors
//
// Lookups of missing rows return ErrNotFound. Every operation on a closed or
// never-opened store returns ErrNotConnected.
package storage
