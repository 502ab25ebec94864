package olog_test

import "github.com/Fantasime/olog"

func Example_basic() {
	// Create a logger; the consumer goroutine starts immediately.
	logger := olog.New()
	defer logger.Close()

	// Callsites are resolved and analyzed once, then reused.
	logger.Infof("server started on port %d", 8080)
	logger.Warningf("memory usage at %d%%", 87)
	logger.Errorf("failed to connect to %s: attempt %d", "db01", 3)

	// Output goes to stdout, colorized when it is a terminal.
}

func Example_producer() {
	logger := olog.New()
	defer logger.Close()

	// A dedicated producer handle keeps one goroutine's records in commit
	// order and avoids the pooled-handle indirection.
	p := logger.NewProducer()
	defer p.Close()

	for i := 0; i < 3; i++ {
		p.Infof("batch item %d of %d", i+1, 3)
	}
}

func Example_file() {
	logger := olog.New()
	defer logger.Close()

	// Append-only file output with data-sync-on-write semantics.
	if err := logger.SetOutputFile("/tmp/app.log"); err != nil {
		logger.Errorf("keeping stdout: %s", err.Error())
	}
	logger.Infof("now writing to the file")
}

func Example_environment() {
	// OLOG_LEVEL, OLOG_FILE, OLOG_STAGING_BUFFER_SIZE, ... configure the
	// logger from the environment.
	cfg, err := olog.FromEnv()
	if err != nil {
		return
	}
	logger, err := olog.NewWithConfig(cfg)
	if err != nil {
		return
	}
	defer logger.Close()

	logger.Infof("configured from environment")
}
