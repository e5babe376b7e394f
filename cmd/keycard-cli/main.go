package main

import (
	"bufio"
	"encoding/hex"
	"flag"
	"fmt"
	stdlog "log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"

	keycard "github.com/alexjba/keycard-go"
	keycardio "github.com/alexjba/keycard-go/io"
)

type commandFunc func(*keycard.CommandSet) error

var (
	logger = log.New("package", "keycard-go/cmd/keycard-cli")

	commands map[string]commandFunc

	flagCommand     = flag.String("c", "", "command")
	flagReaderIndex = flag.Int("i", -1, "reader index, -1 for any reader with a card")
	flagWaitTime    = flag.Duration("w", 30*time.Second, "how long to wait for a card")
	flagLogLevel    = flag.String("l", "", `Log level, one of: "ERROR", "WARN", "INFO", "DEBUG", and "TRACE"`)
)

func initLogger() {
	if *flagLogLevel == "" {
		*flagLogLevel = "info"
	}

	level, err := log.LvlFromString(strings.ToLower(*flagLogLevel))
	if err != nil {
		stdlog.Fatal(err)
	}

	handler := log.StreamHandler(os.Stderr, log.TerminalFormat(true))
	filteredHandler := log.LvlFilterHandler(level, handler)
	log.Root().SetHandler(filteredHandler)
}

func init() {
	flag.Parse()
	initLogger()

	commands = map[string]commandFunc{
		"info":              commandInfo,
		"init":              commandInit,
		"pair":              commandPair,
		"unpair":            commandUnpair,
		"open":              commandOpen,
		"status":            commandStatus,
		"verify-pin":        commandVerifyPIN,
		"change-pin":        commandChangePIN,
		"change-puk":        commandChangePUK,
		"change-pairing":    commandChangePairingSecret,
		"unblock-pin":       commandUnblockPIN,
		"generate-key":      commandGenerateKey,
		"generate-mnemonic": commandGenerateMnemonic,
		"load-seed":         commandLoadSeed,
		"remove-key":        commandRemoveKey,
		"derive":            commandDeriveKey,
		"sign":              commandSign,
		"export":            commandExportKey,
		"set-pinless":       commandSetPinlessPath,
		"get-data":          commandGetData,
		"store-data":        commandStoreData,
		"metadata":          commandMetadata,
		"factory-reset":     commandFactoryReset,
		"identify":          commandIdentify,
	}
}

func usage() {
	fmt.Printf("\nUsage: keycard-cli -c COMMAND [FLAGS]\n\nValid commands:\n\n")
	for name := range commands {
		fmt.Printf("- %s\n", name)
	}
	fmt.Print("\nFlags:\n\n")
	flag.PrintDefaults()
	os.Exit(1)
}

func fail(msg string, ctx ...interface{}) {
	logger.Error(msg, ctx...)
	os.Exit(1)
}

func main() {
	if *flagCommand == "" {
		logger.Error("you must specify a command")
		usage()
	}

	monitor := keycardio.NewCardMonitor()
	monitor.SetReaderIndex(*flagReaderIndex)
	if err := monitor.Start(); err != nil {
		fail("error starting the card monitor", "error", err)
	}
	defer monitor.Stop()

	logger.Info("waiting for a card")
	waitForCard(monitor)

	channel := keycardio.NewNormalChannel(monitor)
	cs := keycard.NewCommandSet(channel)

	if f, ok := commands[*flagCommand]; ok {
		if err := f(cs); err != nil {
			logger.Error("error executing command", "command", *flagCommand, "error", err)
			os.Exit(1)
		}
		return
	}

	fail("unknown command", "command", *flagCommand)
	usage()
}

func waitForCard(monitor *keycardio.CardMonitor) {
	deadline := time.After(*flagWaitTime)
	for {
		select {
		case ev := <-monitor.Events():
			switch ev.Type {
			case keycardio.CardDetected:
				logger.Info("card detected", "reader", ev.Reader, "uid", ev.UID)
				return
			case keycardio.MonitorError:
				fail("monitor error", "error", ev.Err)
			}
		case <-deadline:
			fail("no card detected")
		}
	}
}

func ask(description string) string {
	r := bufio.NewReader(os.Stdin)
	fmt.Printf("%s: ", description)
	text, err := r.ReadString('\n')
	if err != nil {
		stdlog.Fatal(err)
	}

	return strings.TrimSpace(text)
}

func askHex(description string) []byte {
	s := ask(description)
	if strings.HasPrefix(s, "0x") {
		s = s[2:]
	}

	data, err := hex.DecodeString(s)
	if err != nil {
		stdlog.Fatal(err)
	}

	return data
}

func askUint8(description string) uint8 {
	s := ask(description)
	i, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		stdlog.Fatal(err)
	}

	return uint8(i)
}

func openSecureChannel(cs *keycard.CommandSet) error {
	if err := cs.Select(); err != nil {
		return err
	}

	index := askUint8("Pairing index")
	key := askHex("Pairing key")
	cs.SetPairingInfo(key, int(index))

	return cs.OpenSecureChannel()
}

func openAndVerifyPIN(cs *keycard.CommandSet) error {
	if err := openSecureChannel(cs); err != nil {
		return err
	}

	return cs.VerifyPIN(ask("PIN"))
}

func commandInfo(cs *keycard.CommandSet) error {
	if err := cs.Select(); err != nil {
		return err
	}

	info := cs.ApplicationInfo
	fmt.Printf("Installed: %+v\n", info.Installed)
	fmt.Printf("Initialized: %+v\n", info.Initialized)
	fmt.Printf("InstanceUID: 0x%x\n", info.InstanceUID)
	fmt.Printf("SecureChannelPublicKey: 0x%x\n", info.SecureChannelPublicKey)
	fmt.Printf("Version: 0x%x\n", info.Version)
	fmt.Printf("AvailableSlots: 0x%x\n", info.AvailableSlots)
	fmt.Printf("KeyUID: 0x%x\n", info.KeyUID)
	fmt.Printf("Capabilities:\n")
	fmt.Printf("  Secure channel: %v\n", info.HasSecureChannelCapability())
	fmt.Printf("  Key management: %v\n", info.HasKeyManagementCapability())
	fmt.Printf("  Credentials management: %v\n", info.HasCredentialsManagementCapability())
	fmt.Printf("  NDEF: %v\n", info.HasNDEFCapability())

	return nil
}

func commandInit(cs *keycard.CommandSet) error {
	if err := cs.Select(); err != nil {
		return err
	}

	secrets, err := keycard.GenerateSecrets()
	if err != nil {
		return err
	}

	if err := cs.Init(secrets); err != nil {
		return err
	}

	fmt.Printf("PIN: %s\n", secrets.Pin())
	fmt.Printf("PUK: %s\n", secrets.Puk())
	fmt.Printf("Pairing password: %s\n", secrets.PairingPass())

	return nil
}

func commandPair(cs *keycard.CommandSet) error {
	if err := cs.Select(); err != nil {
		return err
	}

	pairingPass := ask("Pairing password")
	if err := cs.Pair(pairingPass); err != nil {
		return err
	}

	fmt.Printf("Pairing key: 0x%x\n", cs.PairingInfo.Key)
	fmt.Printf("Pairing index: %d\n", cs.PairingInfo.Index)

	return nil
}

func commandUnpair(cs *keycard.CommandSet) error {
	if err := openAndVerifyPIN(cs); err != nil {
		return err
	}

	index := askUint8("Index to unpair")
	if err := cs.Unpair(index); err != nil {
		return err
	}

	fmt.Printf("Unpaired index %d\n", index)

	return nil
}

func commandOpen(cs *keycard.CommandSet) error {
	if err := openSecureChannel(cs); err != nil {
		return err
	}

	fmt.Printf("secure channel opened\n")

	return nil
}

func commandStatus(cs *keycard.CommandSet) error {
	if err := openSecureChannel(cs); err != nil {
		return err
	}

	appStatus, err := cs.GetStatusApplication()
	if err != nil {
		return err
	}

	fmt.Printf("PIN retry count: %d\n", appStatus.PinRetryCount)
	fmt.Printf("PUK retry count: %d\n", appStatus.PUKRetryCount)
	fmt.Printf("Key initialized: %v\n", appStatus.KeyInitialized)

	pathStatus, err := cs.GetStatusKeyPath()
	if err != nil {
		return err
	}

	fmt.Printf("Current path: %s\n", pathStatus.Path)

	return nil
}

func commandVerifyPIN(cs *keycard.CommandSet) error {
	if err := openAndVerifyPIN(cs); err != nil {
		return err
	}

	fmt.Printf("PIN verified\n")

	return nil
}

func commandChangePIN(cs *keycard.CommandSet) error {
	if err := openAndVerifyPIN(cs); err != nil {
		return err
	}

	return cs.ChangePIN(ask("New PIN"))
}

func commandChangePUK(cs *keycard.CommandSet) error {
	if err := openAndVerifyPIN(cs); err != nil {
		return err
	}

	return cs.ChangePUK(ask("New PUK"))
}

func commandChangePairingSecret(cs *keycard.CommandSet) error {
	if err := openAndVerifyPIN(cs); err != nil {
		return err
	}

	return cs.ChangePairingSecret(ask("New pairing password"))
}

func commandUnblockPIN(cs *keycard.CommandSet) error {
	if err := openSecureChannel(cs); err != nil {
		return err
	}

	puk := ask("PUK")
	newPIN := ask("New PIN")

	return cs.UnblockPIN(puk, newPIN)
}

func commandGenerateKey(cs *keycard.CommandSet) error {
	if err := openAndVerifyPIN(cs); err != nil {
		return err
	}

	keyUID, err := cs.GenerateKey()
	if err != nil {
		return err
	}

	fmt.Printf("Key UID: 0x%x\n", keyUID)

	return nil
}

func commandGenerateMnemonic(cs *keycard.CommandSet) error {
	if err := openSecureChannel(cs); err != nil {
		return err
	}

	checksumSize := askUint8("Checksum size (4-8)")
	indexes, err := cs.GenerateMnemonic(int(checksumSize))
	if err != nil {
		return err
	}

	fmt.Printf("Word indexes: %v\n", indexes)

	return nil
}

func commandLoadSeed(cs *keycard.CommandSet) error {
	if err := openAndVerifyPIN(cs); err != nil {
		return err
	}

	seed := askHex("Seed (64 bytes hex)")
	keyUID, err := cs.LoadSeed(seed)
	if err != nil {
		return err
	}

	fmt.Printf("Key UID: 0x%x\n", keyUID)

	return nil
}

func commandRemoveKey(cs *keycard.CommandSet) error {
	if err := openAndVerifyPIN(cs); err != nil {
		return err
	}

	if err := cs.RemoveKey(); err != nil {
		return err
	}

	fmt.Printf("key removed\n")

	return nil
}

func commandDeriveKey(cs *keycard.CommandSet) error {
	if err := openAndVerifyPIN(cs); err != nil {
		return err
	}

	path := ask(`Derivation path (e.g. "m/44'/60'/0'/0/0")`)
	if err := cs.DeriveKey(path); err != nil {
		return err
	}

	fmt.Printf("current key is now %s\n", path)

	return nil
}

func commandSign(cs *keycard.CommandSet) error {
	if err := openAndVerifyPIN(cs); err != nil {
		return err
	}

	data := askHex("Hash to sign (32 bytes hex)")
	sig, err := cs.Sign(data)
	if err != nil {
		return err
	}

	fmt.Printf("Public key: 0x%x\n", sig.PubKey())
	fmt.Printf("R: 0x%x\n", sig.R())
	fmt.Printf("S: 0x%x\n", sig.S())
	fmt.Printf("V: 0x%x\n", sig.V())

	return nil
}

func commandExportKey(cs *keycard.CommandSet) error {
	if err := openAndVerifyPIN(cs); err != nil {
		return err
	}

	path := ask(`Derivation path (e.g. "m/44'/60'/0'/0/0")`)
	onlyPublic := strings.ToLower(ask("Export the private key too? (y/n)")) != "y"
	privKey, pubKey, err := cs.ExportKey(true, false, onlyPublic, path)
	if err != nil {
		return err
	}

	if len(privKey) > 0 {
		fmt.Printf("Private key: 0x%x\n", privKey)
	}
	fmt.Printf("Public key: 0x%x\n", pubKey)

	return nil
}

func commandSetPinlessPath(cs *keycard.CommandSet) error {
	if err := openAndVerifyPIN(cs); err != nil {
		return err
	}

	path := ask(`Pinless path (e.g. "m/44'/60'/0'/0/0")`)

	return cs.SetPinlessPath(path)
}

func commandGetData(cs *keycard.CommandSet) error {
	if err := openSecureChannel(cs); err != nil {
		return err
	}

	typ := askUint8("Data type (0 public, 1 NDEF, 2 cash)")
	data, err := cs.GetData(typ)
	if err != nil {
		return err
	}

	fmt.Printf("Data: 0x%x\n", data)

	return nil
}

func commandStoreData(cs *keycard.CommandSet) error {
	if err := openAndVerifyPIN(cs); err != nil {
		return err
	}

	typ := askUint8("Data type (0 public, 1 NDEF, 2 cash)")
	data := askHex("Data (hex)")

	return cs.StoreData(typ, data)
}

func commandMetadata(cs *keycard.CommandSet) error {
	if err := openSecureChannel(cs); err != nil {
		return err
	}

	metadata, err := cs.GetMetadata()
	if err != nil {
		return err
	}

	fmt.Printf("Name: %s\n", metadata.Name())
	fmt.Printf("Paths:\n")
	for _, path := range metadata.Paths() {
		fmt.Printf("  m/44'/60'/0'/0/%d\n", path)
	}

	return nil
}

func commandFactoryReset(cs *keycard.CommandSet) error {
	if err := cs.FactoryReset(); err != nil {
		return err
	}

	fmt.Printf("card reset to factory state\n")

	return nil
}

func commandIdentify(cs *keycard.CommandSet) error {
	if err := cs.Select(); err != nil {
		return err
	}

	data, err := cs.Identify(nil)
	if err != nil {
		return err
	}

	fmt.Printf("Identity: 0x%x\n", data)

	return nil
}
