// Package filestore é o driver de armazenamento em arquivos.
//
// transactions.jsonl é o write-ahead log: cada transferência vira uma linha, com fsync antes do commit.
// accounts.json é um snapshot compactado das contas, trocado atomicamente (tmp + fsync + rename)
// e marcado com quantas linhas do ledger ele já reflete. No Open, as linhas além desse
// contador são reaplicadas sobre os saldos.
package filestore

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/domain"
	"github.com/rs/zerolog/log"
)

const (
	AccountsFile     = "accounts.json"
	TransactionsFile = "transactions.jsonl"
)

// ErrAlreadyInitialized é devolvido por Init quando já existe estado no diretório.
var ErrAlreadyInitialized = errors.New("store already initialized")

type Options struct {
	// InitFresh autoriza criar um storage vazio quando o diretório não tem estado.
	InitFresh bool
	// Now troca o relógio usado em timestamps gerados pelo store.
	Now func() time.Time
}

// Store mantém em memória a cópia autoritativa do estado, espelhada em disco.
// Escritas são serializadas por mu (um escritor por vez); leituras usam RLock.
type Store struct {
	dir string
	now func() time.Time
	// snapshotWriter é trocado nos testes para simular disco cheio.
	snapshotWriter func(dir string, snap snapshot) error

	mu       sync.RWMutex
	accounts map[string]*domain.Account
	ledger   []domain.Transaction
	ledgerFD *os.File
}

// Init cria um storage vazio em dir. É a ação explícita de "inicializar do zero".
func Init(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	for _, name := range []string{AccountsFile, TransactionsFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return fmt.Errorf("%w: %s exists", ErrAlreadyInitialized, name)
		}
	}

	if err := writeSnapshot(dir, snapshot{Accounts: map[string]accountRecord{}}); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(dir, TransactionsFile), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create ledger: %w", err)
	}
	return f.Close()
}

// Open carrega o estado de dir. Estado ausente só é criado com opts.InitFresh;
// estado ilegível ou inconsistente sempre devolve domain.ErrReadFailure.
func Open(dir string, opts Options) (*Store, error) {
	s := &Store{dir: dir, now: opts.Now, snapshotWriter: writeSnapshot}
	if s.now == nil {
		s.now = time.Now
	}

	snapPath := filepath.Join(dir, AccountsFile)
	if _, err := os.Stat(snapPath); errors.Is(err, os.ErrNotExist) {
		if !opts.InitFresh {
			return nil, fmt.Errorf("%w: %s not found (set INIT_FRESH=true or run `ledgerctl init`)", domain.ErrReadFailure, snapPath)
		}
		log.Warn().Str("dir", dir).Msg("Storage ausente, inicializando vazio (INIT_FRESH)")
		if err := Init(dir); err != nil {
			return nil, err
		}
	}

	snap, err := readSnapshot(snapPath)
	if err != nil {
		return nil, err
	}
	ledger, err := readLedger(filepath.Join(dir, TransactionsFile))
	if err != nil {
		return nil, err
	}
	if snap.Applied < 0 || snap.Applied > len(ledger) {
		return nil, fmt.Errorf("%w: snapshot applied=%d but ledger has %d entries", domain.ErrReadFailure, snap.Applied, len(ledger))
	}

	s.accounts = make(map[string]*domain.Account, len(snap.Accounts))
	for id, rec := range snap.Accounts {
		acc := toDomainAccount(id, rec)
		if acc.Balance.IsNegative() || !domain.IsWholeCents(acc.Balance) {
			return nil, fmt.Errorf("%w: account %s has invalid balance %s", domain.ErrReadFailure, id, acc.Balance)
		}
		s.accounts[id] = acc
	}
	s.ledger = ledger

	pending := ledger[snap.Applied:]
	for _, tx := range pending {
		if err := applyTransfer(s.accounts, tx); err != nil {
			return nil, fmt.Errorf("%w: replay of %s failed: %v", domain.ErrReadFailure, tx.ID, err)
		}
	}
	if len(pending) > 0 {
		log.Info().Int("entries", len(pending)).Msg("Ledger reaplicado sobre o snapshot")
		if err := s.writeSnapshotLocked(); err != nil {
			return nil, err
		}
	}

	s.ledgerFD, err = os.OpenFile(filepath.Join(dir, TransactionsFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger for append: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ledgerFD == nil {
		return nil
	}
	err := s.ledgerFD.Close()
	s.ledgerFD = nil
	return err
}

// update roda fn com o lock de escrita e comita o batch se fn não falhar.
func (s *Store) update(fn func(b *Batch) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := newBatch(s)
	if err := fn(b); err != nil {
		return err
	}
	return s.commit(b)
}

// commit aplica o batch: primeiro o ledger (WAL, com fsync), depois memória e snapshot.
// Se o append falhar nada é aplicado. Se só o snapshot falhar, o ledger ainda é a verdade
// e o próximo Open reaplica o que faltar.
func (s *Store) commit(b *Batch) error {
	if len(b.touched) == 0 && len(b.appended) == 0 {
		return nil
	}
	if s.ledgerFD == nil {
		return errors.New("store is closed")
	}

	if len(b.appended) > 0 {
		if err := s.appendLedger(b.appended); err != nil {
			return err
		}
		s.applyBatch(b)
		if err := s.writeSnapshotLocked(); err != nil {
			log.Error().Err(err).Msg("Falha ao gravar snapshot, ledger segue como fonte de verdade")
		}
		return nil
	}

	// Sem linhas no ledger (login, cadastro): o snapshot é a única escrita durável.
	previous := s.accounts
	merged := make(map[string]*domain.Account, len(previous)+len(b.touched))
	for id, acc := range previous {
		merged[id] = acc
	}
	for id, acc := range b.touched {
		merged[id] = acc
	}
	s.accounts = merged
	if err := s.writeSnapshotLocked(); err != nil {
		s.accounts = previous
		return err
	}
	return nil
}

func (s *Store) appendLedger(txs []domain.Transaction) error {
	var buf bytes.Buffer
	for _, tx := range txs {
		line, err := encodeTransaction(tx)
		if err != nil {
			return err
		}
		buf.Write(line)
	}

	info, err := s.ledgerFD.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat ledger: %w", err)
	}
	size := info.Size()

	if _, err := s.ledgerFD.Write(buf.Bytes()); err != nil {
		s.truncateLedger(size)
		return fmt.Errorf("failed to append to ledger: %w", err)
	}
	if err := s.ledgerFD.Sync(); err != nil {
		s.truncateLedger(size)
		return fmt.Errorf("failed to sync ledger: %w", err)
	}
	return nil
}

// truncateLedger desfaz um append parcial para o arquivo não ficar com linha rasgada.
func (s *Store) truncateLedger(size int64) {
	if err := s.ledgerFD.Truncate(size); err != nil {
		log.Error().Err(err).Int64("size", size).Msg("Falha ao desfazer append parcial do ledger")
	}
}

func (s *Store) applyBatch(b *Batch) {
	for id, acc := range b.touched {
		s.accounts[id] = acc
	}
	s.ledger = append(s.ledger, b.appended...)
}

func (s *Store) writeSnapshotLocked() error {
	snap := snapshot{
		Applied:  len(s.ledger),
		Accounts: make(map[string]accountRecord, len(s.accounts)),
	}
	for id, acc := range s.accounts {
		snap.Accounts[id] = toAccountRecord(acc)
	}
	return s.snapshotWriter(s.dir, snap)
}

func writeSnapshot(dir string, snap snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	final := filepath.Join(dir, AccountsFile)
	tmp, err := os.CreateTemp(dir, AccountsFile+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create snapshot temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op depois do rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	syncDir(dir)
	return nil
}

func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		log.Debug().Err(err).Str("dir", dir).Msg("fsync do diretório não suportado")
	}
}

func readSnapshot(path string) (snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return snapshot{}, fmt.Errorf("%w: %v", domain.ErrReadFailure, err)
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return snapshot{}, fmt.Errorf("%w: %s is corrupt: %v", domain.ErrReadFailure, path, err)
	}
	if snap.Accounts == nil {
		return snapshot{}, fmt.Errorf("%w: %s has no accounts object", domain.ErrReadFailure, path)
	}
	return snap, nil
}

// readLedger lê o JSONL inteiro. Qualquer linha inválida, inclusive uma última linha
// rasgada por crash, é tratada como corrupção.
func readLedger(path string) ([]domain.Transaction, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrReadFailure, err)
	}
	defer f.Close()

	var txs []domain.Transaction
	reader := bufio.NewReader(f)
	lineNo := 0
	for {
		line, err := reader.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			lineNo++
			var rec transactionRecord
			if jsonErr := json.Unmarshal(line, &rec); jsonErr != nil {
				return nil, fmt.Errorf("%w: %s line %d: %v", domain.ErrReadFailure, path, lineNo, jsonErr)
			}
			tx := toDomainTransaction(rec)
			if !tx.Amount.IsPositive() || !domain.IsWholeCents(tx.Amount) {
				return nil, fmt.Errorf("%w: %s line %d: invalid amount %s", domain.ErrReadFailure, path, lineNo, tx.Amount)
			}
			txs = append(txs, tx)
		}
		if errors.Is(err, io.EOF) {
			return txs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrReadFailure, err)
		}
	}
}

func applyTransfer(accounts map[string]*domain.Account, tx domain.Transaction) error {
	from, ok := accounts[tx.FromAccountID]
	if !ok {
		return fmt.Errorf("unknown sender %s", tx.FromAccountID)
	}
	to, ok := accounts[tx.ToAccountID]
	if !ok {
		return fmt.Errorf("unknown recipient %s", tx.ToAccountID)
	}
	if err := from.Debit(tx.Amount); err != nil {
		return err
	}
	to.Credit(tx.Amount)
	return nil
}
