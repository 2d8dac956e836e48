// Command receipt attaches a receipt file to an existing expense: it asks the
// API for an upload URL, uploads the file straight to object storage and
// records the object key on the expense.
//
//	receipt -api http://localhost:8080/api -id 7 -file lunch.png
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/expensely/service/internal/logging"
	"github.com/expensely/service/internal/uploader"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "receipt:", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("receipt", flag.ContinueOnError)
	fs.SetOutput(stderr)

	apiURL := fs.String("api", envOr("EXPENSES_API", "http://localhost:8080/api"), "base URL of the expenses API")
	id := fs.Int64("id", 0, "expense id to attach the receipt to")
	path := fs.String("file", "", "receipt file to upload")
	verbose := fs.Bool("v", false, "log every state change")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id <= 0 {
		return errors.New("-id must be a positive expense id")
	}

	log := logging.NewWithWriter("development", stderr).Level(zerolog.InfoLevel)
	if *verbose {
		log = log.Level(zerolog.DebugLevel)
	}

	client, err := uploader.NewClient(*apiURL)
	if err != nil {
		return err
	}
	form := uploader.NewForm(client, *id,
		uploader.WithOnChange(func(s uploader.State) {
			log.Debug().Stringer("state", s).Msg("upload form")
		}),
	)

	if *path != "" {
		f, err := os.Open(*path)
		if err != nil {
			return err
		}
		defer f.Close()

		file, err := describe(f)
		if err != nil {
			return err
		}
		if err := form.Select(file); err != nil {
			return err
		}
		log.Info().Str("file", file.Name).Str("type", file.ContentType).Int64("size", file.Size).Msg("uploading receipt")
	}

	if err := form.Submit(ctx); err != nil {
		return err
	}

	e, err := client.Get(ctx, *id)
	if err != nil {
		return fmt.Errorf("reload expense: %w", err)
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(e)
}

// describe sniffs the content type from the extension, then from the first
// bytes, and rewinds f for the upload.
func describe(f *os.File) (*uploader.File, error) {
	st, err := f.Stat()
	if err != nil {
		return nil, err
	}

	ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(f.Name())))
	if ct == "" {
		head := make([]byte, 512)
		n, err := io.ReadFull(f, head)
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
			return nil, err
		}
		ct = http.DetectContentType(head[:n])
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
	}

	return &uploader.File{
		Name:        filepath.Base(f.Name()),
		ContentType: ct,
		Size:        st.Size(),
		Body:        f,
	}, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
