// Package main provides a CLI that mints HS256 access tokens for local
// development, signed with JWT_SECRET the way the identity provider does.
package main

import (
    "flag"
    "fmt"
    "os"
    "strings"
    "time"

    "github.com/caarlos0/env/v11"
    "github.com/joho/godotenv"

    "github.com/iliyamo/community-events/internal/model"
    "github.com/iliyamo/community-events/internal/utils"
)

type tokenConfig struct {
    JWTSecret string `env:"JWT_SECRET,required,notEmpty"`
}

func main() {
    var (
        userID uint64
        role   string
        ttl    time.Duration
        quiet  bool
    )
    flag.Uint64Var(&userID, "user", 1, "user id placed in the sub claim")
    flag.StringVar(&role, "role", model.RoleMember, "role claim (ADMIN, ORGANIZER, MEMBER)")
    flag.DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
    flag.BoolVar(&quiet, "q", false, "print only the token")
    flag.Parse()

    _ = godotenv.Load()
    var cfg tokenConfig
    if err := env.Parse(&cfg); err != nil {
        fmt.Fprintf(os.Stderr, "Error: %v\n", err)
        os.Exit(1)
    }

    role = strings.ToUpper(strings.TrimSpace(role))
    switch role {
    case model.RoleAdmin, model.RoleOrganizer, model.RoleMember:
    default:
        fmt.Fprintf(os.Stderr, "Error: unknown role %q\n", role)
        os.Exit(2)
    }

    tok, err := utils.NewAccessToken(cfg.JWTSecret, userID, role, ttl)
    if err != nil {
        fmt.Fprintf(os.Stderr, "Error: %v\n", err)
        os.Exit(1)
    }
    if quiet {
        fmt.Println(tok.Token)
        return
    }
    fmt.Printf("user=%d role=%s expires=%s\n", userID, role, tok.Exp.Format(time.RFC3339))
    fmt.Printf("Authorization: Bearer %s\n", tok.Token)
}
