// Command import_local copies campaigns recorded in a local SQLite file (for
// example by solitaire -save) into the Postgres database so they show up in
// a user's session list with their full history.
//
// Usage:
//
//	go run ./cmd/import_local/ --input games.db --db postgres://...
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/rs/zerolog"

	"github.com/freeeve/race-to-moscow/internal/repository"
	"github.com/freeeve/race-to-moscow/internal/repository/local"
	"github.com/freeeve/race-to-moscow/internal/repository/postgres"
)

// source is the side sessions are read from.
type source struct {
	sessions  repository.SessionRepository
	snapshots repository.SnapshotRepository
}

// target is the side sessions are written to.
type target struct {
	users     repository.UserRepository
	sessions  repository.SessionRepository
	snapshots repository.SnapshotRepository
}

func main() {
	inputFile := flag.String("input", "", "Path to the SQLite file")
	dbURL := flag.String("db", os.Getenv("DATABASE_URL"), "Postgres connection URL")
	owner := flag.String("owner", "solitaire", "Owner ID the sessions were recorded under")
	displayName := flag.String("name", "Solitaire bot", "Display name of the importing user")
	flag.Parse()

	if *inputFile == "" {
		log.Fatal("--input is required")
	}
	if *dbURL == "" {
		log.Fatal("--db or DATABASE_URL is required")
	}

	store, err := local.Open(*inputFile, zerolog.Nop())
	if err != nil {
		log.Fatalf("open input: %v", err)
	}
	defer store.Close()

	db, err := postgres.Connect(*dbURL)
	if err != nil {
		log.Fatalf("connect to postgres: %v", err)
	}
	defer db.Close()

	src := source{sessions: store.Sessions(), snapshots: store.Snapshots()}
	dst := target{
		users:     postgres.NewUserRepo(db),
		sessions:  postgres.NewSessionRepo(db),
		snapshots: postgres.NewSnapshotRepo(db),
	}

	ctx := context.Background()
	user, err := dst.users.Upsert(ctx, "bot", *owner, *displayName, "")
	if err != nil {
		log.Fatalf("upsert user: %v", err)
	}

	imported, err := importAll(ctx, src, dst, *owner, user.ID)
	if err != nil {
		log.Fatalf("import: %v", err)
	}
	log.Printf("done: imported %d sessions for user %s", imported, user.ID)
}

// importAll copies every session srcOwner has in src to dstOwner in dst. A
// session that fails is logged and skipped.
func importAll(ctx context.Context, src source, dst target, srcOwner, dstOwner string) (int, error) {
	list, err := src.sessions.ListByOwner(ctx, srcOwner)
	if err != nil {
		return 0, fmt.Errorf("list sessions: %w", err)
	}

	imported := 0
	for _, sess := range list {
		id, n, err := importSession(ctx, src, dst, sess.ID, dstOwner)
		if err != nil {
			log.Printf("ERROR: import session %s: %v", sess.ID, err)
			continue
		}
		imported++
		log.Printf("imported session %s -> %s (%d snapshots)", sess.ID, id, n)
	}
	return imported, nil
}

// importSession recreates one session and its snapshot history under a new
// ID, then sets its progress to the source's.
func importSession(ctx context.Context, src source, dst target, id, owner string) (string, int, error) {
	sess, err := src.sessions.FindByID(ctx, id)
	if err != nil {
		return "", 0, err
	}
	if sess == nil {
		return "", 0, fmt.Errorf("session %s not found", id)
	}
	history, err := src.snapshots.List(ctx, id)
	if err != nil {
		return "", 0, fmt.Errorf("list snapshots: %w", err)
	}
	if len(history) == 0 {
		return "", 0, fmt.Errorf("session %s has no snapshots", id)
	}

	created, err := dst.sessions.Create(ctx, owner, sess.Name, sess.Faction, sess.Mode, sess.Seed)
	if err != nil {
		return "", 0, fmt.Errorf("create session: %w", err)
	}
	for _, entry := range history {
		// List leaves out the state body.
		snap, err := src.snapshots.At(ctx, id, entry.Version)
		if err != nil {
			return "", 0, fmt.Errorf("read snapshot %d: %w", entry.Version, err)
		}
		if snap == nil {
			return "", 0, fmt.Errorf("snapshot %d vanished", entry.Version)
		}
		if err := dst.snapshots.Append(ctx, created.ID, snap.Version, snap.Op, snap.LogLine, snap.State); err != nil {
			return "", 0, fmt.Errorf("append snapshot %d: %w", snap.Version, err)
		}
	}
	if err := dst.sessions.UpdateProgress(ctx, created.ID, sess.Version, sess.Turn, sess.Medals, sess.Status); err != nil {
		return "", 0, fmt.Errorf("update progress: %w", err)
	}
	return created.ID, len(history), nil
}
