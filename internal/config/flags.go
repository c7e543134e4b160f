package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/blockpass/internal/flagx"
)

// handledFlags lists the flags parseFlags understands; everything else in
// args is left for other parsers.
var handledFlags = []string{"-b", "-f", "-d", "-s", "-g", "-t", "-m", "-i", "-l", "-w", "-v"}

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-b string   storage backend: file, postgres or sqlite
//	-f string   data directory for the file backend
//	-d string   database DSN
//	-s string   token signing secret
//	-g string   token signing algorithm (HS256, HS384, HS512)
//	-t int      access token validity, minutes
//	-m int      Argon2id memory, KiB
//	-i int      Argon2id iterations
//	-l int      Argon2id lanes
//	-w int      bcrypt cost
//	-v string   log level
func parseFlags(config *Config, args []string) error {
	fs := flag.NewFlagSet("blockpass", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.Backend, "b", config.Backend, "storage backend")
	fs.StringVar(&config.FileDir, "f", config.FileDir, "file backend directory")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.SigningAlgorithm, "g", config.SigningAlgorithm, "signing algorithm")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")

	fs.IntVar(&config.KDFMemoryKiB, "m", config.KDFMemoryKiB, "argon2id memory (KiB)")
	fs.IntVar(&config.KDFTimeCost, "i", config.KDFTimeCost, "argon2id iterations")
	fs.IntVar(&config.KDFParallelism, "l", config.KDFParallelism, "argon2id lanes")
	fs.IntVar(&config.BcryptCost, "w", config.BcryptCost, "bcrypt cost")
	fs.StringVar(&config.LogLevel, "v", config.LogLevel, "log level")

	if err := fs.Parse(flagx.FilterArgs(args, handledFlags)); err != nil {
		return err
	}

	// only an explicit -t overrides, so a sub-minute JSON value survives
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
		}
	})
	return nil
}
