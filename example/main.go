// FILE: lixenwraith/properties/example/main.go
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/lixenwraith/properties"
)

// ServerSettings is decoded from the server{...} sub-table.
type ServerSettings struct {
	Host     string        `prop:"host"`
	Port     int           `prop:"port"`
	LogLevel string        `prop:"log_level"`
	Timeout  time.Duration `prop:"timeout"`
	Tags     []string      `prop:"tags"`
}

func main() {
	dir, err := os.MkdirTemp("", "properties-example")
	if err != nil {
		log.Fatalf("failed to create work directory: %v", err)
	}
	defer os.RemoveAll(dir)
	file := filepath.Join(dir, "app.properties")

	// =========================================================================
	// PART 1: DEFAULTS
	// Defaults are consulted for every key the file does not hold.
	// =========================================================================
	log.Println("---")
	log.Println("PART 1: Opening with defaults...")

	defaults := map[string]any{
		"server{host}":      "localhost",
		"server{port}":      8080,
		"server{log_level}": "info",
		"server{timeout}":   30 * time.Second,
		"server{tags}":      []string{"blue", "canary"},
	}

	writer, err := properties.NewBuilder().
		WithFile(file).
		WithDefaultValues(defaults).
		WithPollInterval(100 * time.Millisecond).
		WithValidator(func(pp *properties.Persistent) error {
			port, err := pp.Int("server{port}", 0)
			if err != nil {
				return err
			}
			if port < 1024 || port > 65535 {
				return fmt.Errorf("port %d is outside the range 1024-65535", port)
			}
			return nil
		}).
		Build()
	if err != nil {
		log.Fatalf("failed to open writer: %v", err)
	}
	defer writer.Close()

	var settings ServerSettings
	if err := writer.Scan("server", &settings); err != nil {
		log.Fatalf("scan failed: %v", err)
	}
	printSettings(settings, "Initial state (defaults only)")

	// =========================================================================
	// PART 2: SHARED FILE
	// A second handle on the same file sees every change the first one stores.
	// =========================================================================
	log.Println("---")
	log.Println("PART 2: Opening a second handle on the same file...")

	reader, err := properties.NewBuilder().
		WithFile(file).
		WithDefaultValues(defaults).
		WithPollInterval(100 * time.Millisecond).
		WithReadOnly(true).
		Build()
	if err != nil {
		log.Fatalf("failed to open reader: %v", err)
	}
	defer reader.Close()

	changes := reader.Watch()
	reader.AddChangeListener(func(changed *properties.Properties) error {
		log.Printf("   reader: reloaded, %d local entries", changed.Len())
		return nil
	})

	if err := writer.Batch(func() error {
		if err := writer.Set("server{log_level}", "debug"); err != nil {
			return err
		}
		return writer.Set("server{port}", 9090)
	}); err != nil {
		log.Fatalf("set failed: %v", err)
	}
	log.Printf("   writer stored %s", writer.File())

	deadline := time.After(5 * time.Second)
	for seen := 0; seen < 2; {
		select {
		case key := <-changes:
			log.Printf("   reader: key '%s' changed", key)
			seen++
		case <-deadline:
			log.Fatalf("timed out waiting for the reader to reload")
		}
	}

	if err := reader.Scan("server", &settings); err != nil {
		log.Fatalf("scan failed: %v", err)
	}
	printSettings(settings, "Reader state (reloaded from file)")

	// =========================================================================
	// PART 3: FALLING BACK TO DEFAULTS
	// Setting a value equal to its default removes the local entry.
	// =========================================================================
	log.Println("---")
	log.Println("PART 3: Restoring the default port...")

	if err := writer.Set("server{port}", 8080); err != nil {
		log.Fatalf("set failed: %v", err)
	}
	log.Printf("   writer holds port locally: %v", writer.Table("server").Has("port"))

	data, err := properties.Marshal(writer.Properties)
	if err != nil {
		log.Fatalf("marshal failed: %v", err)
	}
	fmt.Println("   --------------------------------------------------")
	fmt.Print(string(data))
	fmt.Println("   --------------------------------------------------")
}

// printSettings displays the decoded settings.
func printSettings(s ServerSettings, title string) {
	fmt.Println("   --------------------------------------------------")
	fmt.Printf("             %s\n", title)
	fmt.Println("   --------------------------------------------------")
	fmt.Printf("     Host:      %s\n", s.Host)
	fmt.Printf("     Port:      %d\n", s.Port)
	fmt.Printf("     Log Level: %s\n", s.LogLevel)
	fmt.Printf("     Timeout:   %s\n", s.Timeout)
	fmt.Printf("     Tags:      %v\n", s.Tags)
	fmt.Println("   --------------------------------------------------")
}
