package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/domain"
	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/infra/filestore"
	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/infra/mongodb"
	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/usecase"
	"github.com/google/subcommands"
)

// env é o estado compartilhado entre os subcomandos.
// O ledgerctl não pode rodar junto com a API no mesmo diretório.
type env struct {
	dataDir  string
	out      io.Writer
	mongoURI string
	mongoDB  string
}

func register(commander *subcommands.Commander, e *env) {
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(&initCmd{env: e}, "storage")
	commander.Register(&registerCmd{env: e}, "contas")
	commander.Register(&accountsCmd{env: e}, "contas")
	commander.Register(&historyCmd{env: e}, "contas")
	commander.Register(&auditCmd{env: e}, "auditoria")
}

// withStore abre o storage já existente e garante o Close.
func (e *env) withStore(fn func(*filestore.Store) error) subcommands.ExitStatus {
	store, err := filestore.Open(e.dataDir, filestore.Options{})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer store.Close()

	if err := fn(store); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type initCmd struct{ *env }

func (*initCmd) Name() string     { return "init" }
func (*initCmd) Synopsis() string { return "create an empty ledger in the data directory" }
func (*initCmd) Usage() string {
	return `ledgerctl [-data <dir>] init

  Creates accounts.json and transactions.jsonl. Fails if the directory already holds a ledger.
`
}
func (*initCmd) SetFlags(*flag.FlagSet) {}

func (c *initCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := filestore.Init(c.dataDir); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Fprintf(c.out, "ledger criado em %s\n", c.dataDir)
	return subcommands.ExitSuccess
}

type registerCmd struct {
	*env
	id         string
	name       string
	credential string
	balance    string
}

func (*registerCmd) Name() string     { return "register" }
func (*registerCmd) Synopsis() string { return "register a new account" }
func (*registerCmd) Usage() string {
	return `ledgerctl register -id <id> -name <display name> -credential <secret> [-balance 0.00]
`
}

func (c *registerCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "account id")
	f.StringVar(&c.name, "name", "", "display name")
	f.StringVar(&c.credential, "credential", "", "login credential (stored as bcrypt)")
	f.StringVar(&c.balance, "balance", "0.00", "initial balance, at most 2 decimal places")
}

func (c *registerCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.id == "" || c.credential == "" {
		fmt.Fprintln(os.Stderr, "-id and -credential are required")
		return subcommands.ExitUsageError
	}
	return c.withStore(func(store *filestore.Store) error {
		out, err := usecase.NewRegisterAccount(filestore.NewAccountRepository(store)).Execute(ctx, usecase.RegisterAccountInput{
			ID:             c.id,
			DisplayName:    c.name,
			Credential:     c.credential,
			InitialBalance: c.balance,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "conta %s registrada com saldo %s\n", out.ID, out.Balance)
		return nil
	})
}

type accountsCmd struct{ *env }

func (*accountsCmd) Name() string     { return "accounts" }
func (*accountsCmd) Synopsis() string { return "list accounts and balances" }
func (*accountsCmd) Usage() string    { return "ledgerctl accounts\n" }
func (*accountsCmd) SetFlags(*flag.FlagSet) {}

func (c *accountsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.withStore(func(store *filestore.Store) error {
		accounts, err := filestore.NewAccountRepository(store).Load(ctx)
		if err != nil {
			return err
		}
		ids := make([]string, 0, len(accounts))
		for id := range accounts {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tBALANCE")
		for _, id := range ids {
			acc := accounts[id]
			fmt.Fprintf(w, "%s\t%s\t%s\n", acc.ID, acc.DisplayName, domain.FormatAmount(acc.Balance))
		}
		return w.Flush()
	})
}

type historyCmd struct{ *env }

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "show the transactions of one account, oldest first" }
func (*historyCmd) Usage() string    { return "ledgerctl history <accountId>\n" }
func (*historyCmd) SetFlags(*flag.FlagSet) {}

func (c *historyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, c.Usage())
		return subcommands.ExitUsageError
	}
	accountID := f.Arg(0)
	return c.withStore(func(store *filestore.Store) error {
		txs, err := filestore.NewTransactionRepository(store).ListByParticipant(ctx, accountID)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TIMESTAMP\tID\tFROM\tTO\tAMOUNT")
		for _, tx := range txs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				tx.CreatedAt.Format(time.RFC3339), tx.ID, tx.FromAccountID, tx.ToAccountID, domain.FormatAmount(tx.Amount))
		}
		return w.Flush()
	})
}

// auditCmd consulta o que o worker gravou no Mongo, sem tocar no storage local.
type auditCmd struct{ *env }

func (*auditCmd) Name() string     { return "audit" }
func (*auditCmd) Synopsis() string { return "show audited transfers of one account from MongoDB" }
func (*auditCmd) Usage() string    { return "ledgerctl audit <accountId>\n" }
func (*auditCmd) SetFlags(*flag.FlagSet) {}

func (c *auditCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, c.Usage())
		return subcommands.ExitUsageError
	}
	client, err := mongodb.Connect(ctx, c.mongoURI)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	logs, err := mongodb.NewAuditRepository(client, c.mongoDB).ByAccount(ctx, f.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CREATED\tID\tFROM\tTO\tAMOUNT\tPROCESSED")
	for _, l := range logs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			l.CreatedAt.Format(time.RFC3339), l.TransactionID, l.FromAccount, l.ToAccount, l.Amount, l.ProcessedAt.Format(time.RFC3339))
	}
	if err := w.Flush(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
