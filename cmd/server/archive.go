package main

import (
	"fmt"
	"io"
	"log"
	"strings"

	persistlog "starroom.ai/internal/persistence/log"
	"starroom.ai/internal/persistence/r2s3"
)

// archiveRuntime ships finished event log segments to object storage when SR_ARCHIVE is set.
type archiveRuntime struct {
	enabled bool
	mirror  *r2s3.Mirror
}

func buildArchiveRuntime(dataDir string, getenv func(string) string, logger *log.Logger) (*archiveRuntime, error) {
	if !envBool("SR_ARCHIVE", false) {
		return &archiveRuntime{}, nil
	}
	cfg := r2s3.ConfigFromEnv(getenv)
	if cfg.Endpoint == "" || cfg.Bucket == "" || cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("SR_ARCHIVE=true but SR_ARCHIVE_ENDPOINT/SR_ARCHIVE_BUCKET/SR_ARCHIVE_ACCESS_KEY_ID/SR_ARCHIVE_SECRET_ACCESS_KEY are not fully set")
	}
	client, err := r2s3.New(cfg)
	if err != nil {
		return nil, err
	}
	mirror := r2s3.NewMirror(client, r2s3.Options{
		DataDir: dataDir,
		Prefix:  strings.TrimSpace(getenv("SR_ARCHIVE_PREFIX")),
		Workers: envInt("SR_ARCHIVE_UPLOAD_WORKERS", 2),
	}, logger)
	return &archiveRuntime{enabled: true, mirror: mirror}, nil
}

// writerOptions rotates every minute while archiving so a crash loses at most one segment.
func (a *archiveRuntime) writerOptions() persistlog.WriterOptions {
	if a == nil || !a.enabled {
		return persistlog.WriterOptions{}
	}
	return persistlog.WriterOptions{RotateLayout: "2006-01-02-15-04", OnClose: a.mirror.Enqueue}
}

func (a *archiveRuntime) Close() {
	if a == nil || a.mirror == nil {
		return
	}
	a.mirror.Close()
}

func (a *archiveRuntime) writeMetrics(w io.Writer) {
	if a == nil || !a.enabled {
		return
	}
	s := a.mirror.Stats()
	fmt.Fprintf(w, "# HELP starroom_archive_queue_depth Event log segments waiting for upload.\n")
	fmt.Fprintf(w, "# TYPE starroom_archive_queue_depth gauge\n")
	fmt.Fprintf(w, "starroom_archive_queue_depth %d\n", s.QueueDepth)
	fmt.Fprintf(w, "# HELP starroom_archive_dropped_total Segments dropped because the upload queue was full.\n")
	fmt.Fprintf(w, "# TYPE starroom_archive_dropped_total counter\n")
	fmt.Fprintf(w, "starroom_archive_dropped_total %d\n", s.DroppedTotal)
	fmt.Fprintf(w, "# HELP starroom_archive_uploads_total Segment uploads by result.\n")
	fmt.Fprintf(w, "# TYPE starroom_archive_uploads_total counter\n")
	fmt.Fprintf(w, "starroom_archive_uploads_total{result=\"ok\"} %d\n", s.UploadSuccessTotal)
	fmt.Fprintf(w, "starroom_archive_uploads_total{result=\"fail\"} %d\n", s.UploadFailTotal)
	fmt.Fprintf(w, "# HELP starroom_archive_last_success_unix Unix time of the last successful upload.\n")
	fmt.Fprintf(w, "# TYPE starroom_archive_last_success_unix gauge\n")
	fmt.Fprintf(w, "starroom_archive_last_success_unix %d\n", s.LastSuccessUnix)
}
