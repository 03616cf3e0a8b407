// Command medvault is a CLI client for a MedVault records service: it keeps
// an authenticated session, mirrors patient records locally and moves
// document artifacts up and down.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/medvault/medvault/internal/app"
	"github.com/medvault/medvault/internal/config"
	"github.com/medvault/medvault/internal/records"
	"github.com/medvault/medvault/internal/session"
)

func usage() {
	fmt.Fprintf(os.Stderr, `medvault CLI

Usage:
  medvault <cmd> [args]

Commands:
  login      -email <addr> -password <pw>
  signup     -name <full name> -email <addr> -password <pw> [-role doctor|admin]
  logout
  whoami
  patients list
  patients create -data '<json fields>'
  patients update -id <id> -data '<json fields>'
  patients delete -id <id>
  files list     -patient <id>
  files upload   -patient <id> -path <file>
  files download -id <id> [-out <file>]
  files preview  -id <id> [-name <filename>]
  files delete   -id <id> -patient <id>

Configuration comes from the environment (and an optional .env file):
MEDVAULT_API_URL, MEDVAULT_STATE_DIR, MEDVAULT_SESSION_STORE, ...
`)
	os.Exit(2)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func main() {
	_ = godotenv.Load()
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() < 1 {
		usage()
	}

	rt, err := app.New(config.Load())
	if err != nil {
		fail(err)
	}
	defer rt.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	switch flag.Arg(0) {
	case "login":
		fs := flag.NewFlagSet("login", flag.ExitOnError)
		email := fs.String("email", "", "account email")
		password := fs.String("password", "", "account password")
		fs.Parse(flag.Args()[1:])
		if *email == "" || *password == "" {
			fail(fmt.Errorf("need -email and -password"))
		}
		// Auth UX is a quiet yes/no; detail stays in the logs.
		if err := rt.Session.Login(ctx, *email, *password); err != nil {
			rt.Logger.Debug("login failed", "error", err)
			fmt.Fprintln(os.Stderr, "login failed")
			os.Exit(1)
		}
		fmt.Println("logged in")

	case "signup":
		fs := flag.NewFlagSet("signup", flag.ExitOnError)
		name := fs.String("name", "", "full name")
		email := fs.String("email", "", "account email")
		password := fs.String("password", "", "account password")
		role := fs.String("role", session.RoleDoctor, "account role (doctor or admin)")
		fs.Parse(flag.Args()[1:])
		if *name == "" || *email == "" || *password == "" {
			fail(fmt.Errorf("need -name, -email and -password"))
		}
		if err := rt.Session.Signup(ctx, *name, *email, *password, *role); err != nil {
			rt.Logger.Debug("signup failed", "error", err)
			fmt.Fprintln(os.Stderr, "signup failed")
			os.Exit(1)
		}
		fmt.Println("signed up and logged in")

	case "logout":
		rt.Logout(ctx)
		fmt.Println("logged out")

	case "whoami":
		identity := rt.Session.Identity()
		if identity == nil {
			fmt.Println("anonymous")
			return
		}
		printJSON(identity)
		if claims, err := rt.Session.Claims(); err == nil {
			if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
				fmt.Printf("token expires %s\n", exp.Time.Format(time.RFC3339))
			}
		}

	case "patients":
		patientsCmd(ctx, rt)

	case "files":
		filesCmd(ctx, rt)

	default:
		usage()
	}
}

func patientsCmd(ctx context.Context, rt *app.Runtime) {
	if flag.NArg() < 2 {
		usage()
	}
	switch flag.Arg(1) {
	case "list":
		list, err := rt.Records.List(ctx)
		if err != nil {
			// stale-but-available: show the cached mirror if there is one
			if len(list) == 0 {
				fail(err)
			}
			fmt.Fprintln(os.Stderr, "warning: refresh failed, showing cached records:", err)
		}
		printJSON(list)

	case "create":
		fs := flag.NewFlagSet("patients create", flag.ExitOnError)
		data := fs.String("data", "", "patient fields as JSON")
		fs.Parse(flag.Args()[2:])
		var fields records.Patient
		if err := json.Unmarshal([]byte(*data), &fields); err != nil {
			fail(fmt.Errorf("parse -data: %w", err))
		}
		created, err := rt.Records.Create(ctx, fields)
		if err != nil {
			fail(err)
		}
		printJSON(created)

	case "update":
		fs := flag.NewFlagSet("patients update", flag.ExitOnError)
		id := fs.Int64("id", 0, "patient id")
		data := fs.String("data", "", "patient fields as JSON")
		fs.Parse(flag.Args()[2:])
		if *id == 0 {
			fail(fmt.Errorf("need -id"))
		}
		var fields records.Patient
		if err := json.Unmarshal([]byte(*data), &fields); err != nil {
			fail(fmt.Errorf("parse -data: %w", err))
		}
		updated, err := rt.Records.Update(ctx, *id, fields)
		if err != nil {
			fail(err)
		}
		printJSON(updated)

	case "delete":
		fs := flag.NewFlagSet("patients delete", flag.ExitOnError)
		id := fs.Int64("id", 0, "patient id")
		fs.Parse(flag.Args()[2:])
		if *id == 0 {
			fail(fmt.Errorf("need -id"))
		}
		if err := rt.Records.Delete(ctx, *id); err != nil {
			fail(err)
		}
		fmt.Println("deleted")

	default:
		usage()
	}
}

func filesCmd(ctx context.Context, rt *app.Runtime) {
	if flag.NArg() < 2 {
		usage()
	}
	switch flag.Arg(1) {
	case "list":
		fs := flag.NewFlagSet("files list", flag.ExitOnError)
		patient := fs.Int64("patient", 0, "patient id")
		fs.Parse(flag.Args()[2:])
		if *patient == 0 {
			fail(fmt.Errorf("need -patient"))
		}
		docs, err := rt.Records.RefreshDocuments(ctx, *patient)
		if err != nil {
			fail(err)
		}
		printJSON(docs)

	case "upload":
		fs := flag.NewFlagSet("files upload", flag.ExitOnError)
		patient := fs.Int64("patient", 0, "patient id")
		path := fs.String("path", "", "file to upload")
		fs.Parse(flag.Args()[2:])
		if *patient == 0 || *path == "" {
			fail(fmt.Errorf("need -patient and -path"))
		}
		doc, err := rt.Files.UploadFile(ctx, *patient, *path)
		if err != nil {
			fail(err)
		}
		printJSON(doc)

	case "download":
		fs := flag.NewFlagSet("files download", flag.ExitOnError)
		id := fs.Int64("id", 0, "document id")
		out := fs.String("out", "", "destination path (defaults to the stored filename)")
		fs.Parse(flag.Args()[2:])
		if *id == 0 {
			fail(fmt.Errorf("need -id"))
		}
		dest := *out
		if dest == "" {
			dest = fmt.Sprintf("document-%d", *id)
		}
		if err := rt.Files.Download(ctx, *id, dest); err != nil {
			fail(err)
		}
		fmt.Println("saved", dest)

	case "preview":
		fs := flag.NewFlagSet("files preview", flag.ExitOnError)
		id := fs.Int64("id", 0, "document id")
		name := fs.String("name", "", "suggested filename")
		fs.Parse(flag.Args()[2:])
		if *id == 0 {
			fail(fmt.Errorf("need -id"))
		}
		handle, err := rt.Files.Preview(ctx, *id, *name)
		if err != nil {
			fail(err)
		}
		fmt.Println("previewing at", handle.URL())
		// Keep serving until the viewer has read the bytes (or the grace
		// delay gives up on it).
		<-handle.Done()

	case "delete":
		fs := flag.NewFlagSet("files delete", flag.ExitOnError)
		id := fs.Int64("id", 0, "document id")
		patient := fs.Int64("patient", 0, "patient id")
		fs.Parse(flag.Args()[2:])
		if *id == 0 || *patient == 0 {
			fail(fmt.Errorf("need -id and -patient"))
		}
		if err := rt.Files.DeleteDocument(ctx, *id, *patient); err != nil {
			fail(err)
		}
		fmt.Println("deleted")

	default:
		usage()
	}
}
