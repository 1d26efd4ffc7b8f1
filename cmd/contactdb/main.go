// Command contactdb runs an interactive shell over the durable contact
// store. The shell is thin glue; all invariants live in internal/store.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"contactdb/internal/config"
	"contactdb/internal/contact"
	"contactdb/internal/logging"
	"contactdb/internal/store"
)

func main() {
	configPath := flag.String("config", "config.yml", "path to configuration file")
	dataDir := flag.String("data", "", "override the data directory")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	if *dataDir != "" {
		cfg.Storage.Dir = *dataDir
	}

	if err := logging.Initialize(cfg.Logging); err != nil {
		log.Fatalf("Logging error: %v", err)
	}

	s, err := store.Open(cfg.Storage, nil)
	if err != nil {
		log.Fatalf("Failed to open contact store: %v", err)
	}
	defer s.Close()

	fmt.Printf("contactdb ready (%d contacts in %s). Type 'help' for commands.\n",
		s.Count(), cfg.Storage.Dir)
	runShell(s, cfg.Storage.Dir)
}

func runShell(s *store.Store, dataDir string) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		cmd, args := strings.ToLower(fields[0]), fields[1:]

		switch cmd {
		case "exit", "quit":
			return
		case "help":
			printHelp()
		case "add":
			cmdAdd(s, args)
		case "del":
			cmdDelete(s, args)
		case "delphone":
			cmdDeleteByPhone(s, args)
		case "edit":
			cmdEdit(s, args)
		case "list":
			printContacts(s.List())
		case "find-name":
			cmdFindName(s, args)
		case "find-phone":
			cmdFindPhone(s, args)
		case "get-phone":
			cmdGetPhone(s, args)
		case "perf":
			cmdPerf(args, dataDir)
		default:
			fmt.Println("unknown command, type 'help' for usage")
		}
	}
}

func printHelp() {
	fmt.Println(`commands:
  add <name> <phone> [note...]        create a contact
  del <id>                            delete by id
  delphone <phone>                    delete by phone number
  edit <id> [name=X] [phone=X] [note=X]
                                      update the given fields
  list                                all contacts, id ascending
  find-name <prefix>                  contacts whose name starts with prefix
  find-phone <prefix>                 contacts whose phone starts with prefix
  get-phone <phone>                   exact phone lookup
  perf [n]                            compare trie vs linear lookup over n random contacts
  help | exit`)
}

func cmdAdd(s *store.Store, args []string) {
	if len(args) < 2 {
		fmt.Println("usage: add <name> <phone> [note...]")
		return
	}
	note := strings.Join(args[2:], " ")
	id, err := s.Add(args[0], args[1], note)
	if err != nil {
		fmt.Println("add failed:", err)
		return
	}
	fmt.Printf("added contact id=%d\n", id)
}

func cmdDelete(s *store.Store, args []string) {
	if len(args) != 1 {
		fmt.Println("usage: del <id>")
		return
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		fmt.Println("invalid id:", args[0])
		return
	}
	if err := s.Delete(id); err != nil {
		fmt.Println("delete failed:", err)
		return
	}
	fmt.Println("deleted")
}

func cmdDeleteByPhone(s *store.Store, args []string) {
	if len(args) != 1 {
		fmt.Println("usage: delphone <phone>")
		return
	}
	id, err := s.DeleteByPhone(args[0])
	if err != nil {
		fmt.Println("delete failed:", err)
		return
	}
	fmt.Printf("deleted contact id=%d\n", id)
}

func cmdEdit(s *store.Store, args []string) {
	if len(args) < 2 {
		fmt.Println("usage: edit <id> [name=X] [phone=X] [note=X]")
		return
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		fmt.Println("invalid id:", args[0])
		return
	}
	var p contact.Patch
	for _, arg := range args[1:] {
		key, val, ok := strings.Cut(arg, "=")
		if !ok {
			fmt.Println("expected key=value, got:", arg)
			return
		}
		v := val
		switch key {
		case "name":
			p.Name = &v
		case "phone":
			p.Phone = &v
		case "note":
			p.Note = &v
		default:
			fmt.Println("unknown field:", key)
			return
		}
	}
	if err := s.Edit(id, p); err != nil {
		fmt.Println("edit failed:", err)
		return
	}
	fmt.Println("updated")
}

func cmdFindName(s *store.Store, args []string) {
	if len(args) != 1 {
		fmt.Println("usage: find-name <prefix>")
		return
	}
	printContacts(s.FindByNamePrefix(args[0]))
}

func cmdFindPhone(s *store.Store, args []string) {
	if len(args) != 1 {
		fmt.Println("usage: find-phone <prefix>")
		return
	}
	printContacts(s.FindByPhonePrefix(args[0]))
}

func cmdGetPhone(s *store.Store, args []string) {
	if len(args) != 1 {
		fmt.Println("usage: get-phone <phone>")
		return
	}
	c, ok := s.FindByPhone(args[0])
	if !ok {
		fmt.Println("no contact with that phone")
		return
	}
	printContacts([]contact.Contact{c})
}

func printContacts(contacts []contact.Contact) {
	if len(contacts) == 0 {
		fmt.Println("(no contacts)")
		return
	}
	for _, c := range contacts {
		if c.Note != "" {
			fmt.Printf("%4d  %-20s %-15s %s\n", c.ID, c.Name, c.Phone, c.Note)
		} else {
			fmt.Printf("%4d  %-20s %-15s\n", c.ID, c.Name, c.Phone)
		}
	}
}
