// Command ingest bulk-loads a directory of course files into a collection.
// Each supported file (.pdf, .docx, .txt) is run through text extraction and
// appended to the target subject.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/RNS-Forge/Collexa.AI/engine/catalog"
	"github.com/RNS-Forge/Collexa.AI/engine/domain"
	"github.com/RNS-Forge/Collexa.AI/engine/ingest"
)

func main() {
	var (
		dir          = flag.String("dir", ".", "directory of files to ingest")
		mongoURL     = flag.String("mongo", "mongodb://localhost:27017", "MongoDB connection URL")
		mongoDB      = flag.String("db", "collexa", "database name")
		collectionID = flag.String("collection", "", "target collection id (required)")
		subjectIndex = flag.Int("subject", 0, "target subject index")
	)
	flag.Parse()
	_ = godotenv.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if *collectionID == "" {
		log.Error("missing -collection flag")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, log, *dir, *mongoURL, *mongoDB, *collectionID, *subjectIndex); err != nil {
		log.Error("ingest failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger, dir, mongoURL, mongoDB, collectionID string, subjectIndex int) error {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(mongoURL))
	if err != nil {
		return fmt.Errorf("mongo connect: %w", err)
	}
	defer client.Disconnect(context.Background())

	store := catalog.NewStore(client.Database(mongoDB))
	pipeline := ingest.New(store, log)

	// Fail early on a bad target rather than after reading files.
	course, err := store.Course(ctx, collectionID)
	if err != nil {
		return err
	}
	if subjectIndex < 0 || subjectIndex >= len(course.Subjects) {
		return fmt.Errorf("collection %q has no subject %d", course.Name, subjectIndex)
	}

	files, err := supportedFiles(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		log.Info("no supported files found", "dir", dir)
		return nil
	}

	var ingested, failed int
	for _, path := range files {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		data, err := os.ReadFile(path)
		if err != nil {
			log.Warn("read failed", "file", path, "err", err)
			failed++
			continue
		}
		up := ingest.CourseUpload{
			CollectionID: collectionID,
			SubjectIndex: subjectIndex,
			Filename:     filepath.Base(path),
			Data:         data,
		}
		doc, err := pipeline.IngestCourseDocument(ctx, up)
		if err != nil {
			log.Warn("ingest failed", "file", path, "err", err)
			failed++
			continue
		}
		log.Info("ingested", "file", doc.Filename, "bytes", len(doc.Content))
		ingested++
	}

	log.Info("done", "collection", course.Name, "subject", course.Subjects[subjectIndex].Name,
		"ingested", ingested, "failed", failed)
	if failed > 0 && ingested == 0 {
		return fmt.Errorf("all %d files failed", failed)
	}
	return nil
}

// supportedFiles lists ingestable files directly inside dir, sorted by name.
func supportedFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if domain.AllowedExtensions[ext] {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out, nil
}
