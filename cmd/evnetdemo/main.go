package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/atsika/evnet"
)

// evnetdemo runs a minimal server or client against the evnet runtime,
// printing every delivered event and the live socket table on request.
// Useful for poking at a running System from the command line without
// writing a scenario program.
func main() {
	modeFlag := flag.String("mode", "server", "server or client")
	hostFlag := flag.String("host", "localhost", "server host (client mode)")
	portFlag := flag.Int("port", 9100, "port to listen on or connect to")
	tlsFlag := flag.Bool("tls", false, "negotiate TLS instead of plain TCP")
	certFlag := flag.String("cert", "", "TLS certificate file (server mode)")
	keyFlag := flag.String("privkey", "", "TLS private key file (server mode)")
	certDirFlag := flag.String("certdir", "", "trusted certificate directory (client mode)")
	dumpFlag := flag.Duration("dump", 5*time.Second, "interval between socket-table dumps, 0 to disable")

	flag.Usage = printUsage
	flag.Parse()

	opts := []evnet.Option{evnet.WithSecurityLevel(evnet.SecurityPlainTCP)}
	if *tlsFlag {
		opts = []evnet.Option{
			evnet.WithSecurityLevel(evnet.SecurityTLS),
			evnet.WithTLSMaterial(*certFlag, *keyFlag),
			evnet.WithCertDir(*certDirFlag),
		}
	}

	sys, err := evnet.NewSystem(opts...)
	if err != nil {
		log.Fatalf("new system: %v", err)
	}

	sys.SetUserCallback(func(ev *evnet.Event, _ any) int {
		log.Printf("event %s", ev)
		return 1
	}, nil)

	switch *modeFlag {
	case "server":
		idx, err := sys.StartServer(*portFlag)
		if err != nil {
			log.Fatalf("start server: %v", err)
		}
		log.Printf("listening on :%d (socket %d)", *portFlag, idx)
	case "client":
		idx, err := sys.ConnectToServer(*hostFlag, *portFlag, false, -1)
		if err != nil {
			log.Fatalf("connect: %v", err)
		}
		log.Printf("connecting to %s:%d (socket %d)", *hostFlag, *portFlag, idx)
	default:
		log.Fatalf("unknown -mode %q, want server or client", *modeFlag)
	}

	lastDump := time.Now()
	for {
		if _, err := sys.ProcessQueue(); err != nil {
			log.Fatalf("process queue: %v", err)
		}
		if *dumpFlag > 0 && time.Since(lastDump) >= *dumpFlag {
			sys.DebugDump(logWriter{})
			lastDump = time.Now()
		}
		time.Sleep(time.Millisecond)
	}
}

type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	log.Print(string(p))
	return len(p), nil
}

func printUsage() {
	fmt.Println("evnetdemo - minimal server/client driver for the evnet runtime")
	fmt.Println("Usage:")
	fmt.Println("  evnetdemo -mode server -port 9100")
	fmt.Println("  evnetdemo -mode client -host localhost -port 9100")
	fmt.Println("  evnetdemo -mode server -port 9443 -tls -cert server.pem -privkey server.key")
}
