// Command wirehost operates a TWI bus controller from the command line.
// By default it drives a simulated peripheral with a memory device on
// the bus; with -device it attaches to a remote peripheral over a serial
// register link.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gowire/core"
	"gowire/host/remote"
	"gowire/host/serial"
	"gowire/sim"
)

var (
	device  = flag.String("device", "", "serial device path (empty = builtin simulator)")
	baud    = flag.Int("baud", 115200, "baud rate (ignored for USB CDC)")
	memAddr = flag.Uint("mem", 0x50, "bus address of the simulated memory device")
	verbose = flag.Bool("verbose", false, "trace protocol interrupts")
)

func main() {
	flag.Parse()

	var (
		twi *core.Twi
		per *sim.Peripheral
	)

	if *device == "" {
		per = sim.New(sim.NewMemDevice(uint8(*memAddr)))
		defer per.Close()
		twi = core.New(per.Registers(), core.DefaultConfig())
		per.BindInterrupt(twi.OnInterrupt)
		fmt.Printf("wirehost: simulated bus, memory device at 0x%02x\n", *memAddr)
	} else {
		cfg := serial.DefaultConfig(*device)
		cfg.Baud = *baud
		port, err := serial.Open(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		link := remote.Open(port)
		defer link.Close()
		twi = core.New(link.Registers(), core.DefaultConfig())
		link.BindInterrupt(twi.OnInterrupt)
		fmt.Printf("wirehost: remote peripheral on %s\n", *device)
	}

	if *verbose {
		twi.SetTraceWriter(func(s string) { fmt.Println(s) })
	}

	twi.Begin()

	fmt.Println("Enter commands (type 'help' for available commands, 'quit' to exit):")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := parts[0]

		switch cmd {
		case "quit", "exit", "q":
			return

		case "help", "?":
			printHelp()

		case "scan":
			scanBus(twi)

		case "write":
			if len(parts) < 3 {
				fmt.Println("usage: write <addr> <byte> [byte...]")
				continue
			}
			doWrite(twi, parts[1:])

		case "read":
			if len(parts) != 3 {
				fmt.Println("usage: read <addr> <count>")
				continue
			}
			doRead(twi, parts[1], parts[2])

		case "reg":
			if len(parts) != 4 {
				fmt.Println("usage: reg <addr> <reg> <count>")
				continue
			}
			doRegRead(twi, parts[1], parts[2], parts[3])

		case "slave":
			if per == nil {
				fmt.Println("the slave demo needs the simulated bus")
				continue
			}
			if len(parts) != 2 {
				fmt.Println("usage: slave <addr>")
				continue
			}
			slaveDemo(twi, per, parts[1])

		case "events":
			if per == nil {
				fmt.Println("event log is only available on the simulated bus")
				continue
			}
			for _, e := range per.Events() {
				printEvent(e)
			}

		default:
			fmt.Printf("unknown command: %s (type 'help' for available commands)\n", cmd)
		}
	}
}

func printHelp() {
	fmt.Println(`Commands:
  scan                      probe all 7-bit addresses for a device
  write <addr> <byte>...    master write (hex bytes)
  read <addr> <count>       master read
  reg <addr> <reg> <count>  write register pointer, repeated-start read
  slave <addr>              take the slave role and echo a remote master
  events                    dump the simulated bus event log
  quit                      exit`)
}

func parseByte(s string) (uint8, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 8)
	return uint8(v), err
}

func scanBus(twi *core.Twi) {
	found := 0
	for addr := uint8(0x08); addr < 0x78; addr++ {
		if twi.WriteTo(addr, nil, true, true) == core.WriteOK {
			fmt.Printf("  device at 0x%02x\n", addr)
			found++
		}
	}
	fmt.Printf("%d device(s)\n", found)
}

func doWrite(twi *core.Twi, args []string) {
	addr, err := parseByte(args[0])
	if err != nil {
		fmt.Printf("bad address %q\n", args[0])
		return
	}
	data := make([]byte, 0, len(args)-1)
	for _, a := range args[1:] {
		b, err := parseByte(a)
		if err != nil {
			fmt.Printf("bad byte %q\n", a)
			return
		}
		data = append(data, b)
	}

	printWriteResult(twi.WriteTo(addr, data, true, true))
}

func doRead(twi *core.Twi, addrArg, countArg string) {
	addr, err := parseByte(addrArg)
	if err != nil {
		fmt.Printf("bad address %q\n", addrArg)
		return
	}
	count, err := strconv.Atoi(countArg)
	if err != nil || count <= 0 {
		fmt.Printf("bad count %q\n", countArg)
		return
	}

	buf := make([]byte, count)
	n := twi.ReadFrom(addr, buf, true)
	fmt.Printf("read %d byte(s): % x\n", n, buf[:n])
}

// doRegRead demonstrates a chained transaction: the register pointer is
// written without a stop and the read continues after a repeated start.
func doRegRead(twi *core.Twi, addrArg, regArg, countArg string) {
	addr, err := parseByte(addrArg)
	if err != nil {
		fmt.Printf("bad address %q\n", addrArg)
		return
	}
	regp, err := parseByte(regArg)
	if err != nil {
		fmt.Printf("bad register %q\n", regArg)
		return
	}
	count, err := strconv.Atoi(countArg)
	if err != nil || count <= 0 {
		fmt.Printf("bad count %q\n", countArg)
		return
	}

	if res := twi.WriteTo(addr, []byte{regp}, true, false); res != core.WriteOK {
		printWriteResult(res)
		return
	}
	buf := make([]byte, count)
	n := twi.ReadFrom(addr, buf, true)
	fmt.Printf("reg 0x%02x: % x\n", regp, buf[:n])
}

// echoSlave answers master reads with whatever the last master write
// delivered.
type echoSlave struct {
	twi  *core.Twi
	last []byte
}

func (s *echoSlave) OnReceive(buf []byte, n int) {
	s.last = append(s.last[:0], buf[:n]...)
	fmt.Printf("slave: received % x\n", buf[:n])
}

func (s *echoSlave) OnRequest() {
	s.twi.Transmit(s.last)
}

// slaveDemo configures the controller as a slave at the given address,
// then plays a remote master against it: a write, then a read of the
// echoed bytes.
func slaveDemo(twi *core.Twi, per *sim.Peripheral, addrArg string) {
	addr, err := parseByte(addrArg)
	if err != nil {
		fmt.Printf("bad address %q\n", addrArg)
		return
	}

	echo := &echoSlave{twi: twi}
	twi.SetSlaveHandler(echo)
	twi.SetAddress(addr)

	payload := []byte{0x01, 0x02, 0x03}
	acked, _ := per.RemoteWrite(addr, payload)
	if !acked {
		fmt.Println("slave did not answer its address")
		return
	}
	back, _ := per.RemoteRead(addr, len(payload))
	fmt.Printf("remote master read back % x\n", back)
}

func printWriteResult(res core.WriteResult) {
	switch res {
	case core.WriteOK:
		fmt.Println("ok")
	case core.WriteOverflow:
		fmt.Println("error: data exceeds buffer capacity")
	case core.WriteAddrNACK:
		fmt.Println("error: address not acknowledged")
	case core.WriteDataNACK:
		fmt.Println("error: data not acknowledged")
	default:
		fmt.Println("error: bus fault")
	}
}

func printEvent(e sim.Event) {
	switch e.Kind {
	case sim.EventStart, sim.EventRepStart, sim.EventStop:
		fmt.Printf("  %s\n", e.Kind)
	default:
		fmt.Printf("  %-8s %02x ack=%v\n", e.Kind, e.Byte, e.Ack)
	}
}
