package rpc

import (
	"fmt"
	"net/http"

	"github.com/govm-net/counter/chain"
	"github.com/govm-net/counter/chain/store"
	"github.com/govm-net/counter/core"
	"go.uber.org/zap"
)

// JSONRPCServer exposes a chain as the "counter" JSON-RPC service
type JSONRPCServer struct {
	chain *chain.Chain
	log   *zap.Logger
}

func NewJSONRPCServer(c *chain.Chain, log *zap.Logger) *JSONRPCServer {
	if log == nil {
		log = zap.NewNop()
	}
	return &JSONRPCServer{chain: c, log: log}
}

type PingReply struct {
	Success bool `json:"success"`
}

func (j *JSONRPCServer) Ping(_ *http.Request, _ *struct{}, reply *PingReply) error {
	j.log.Debug("ping")
	reply.Success = true
	return nil
}

type SendMessageArgs struct {
	Message core.Message `json:"message"`
}

type SendMessageReply struct {
	Hash core.Hash `json:"hash"`
}

func (j *JSONRPCServer) SendMessage(req *http.Request, args *SendMessageArgs, reply *SendMessageReply) error {
	hash, err := j.chain.SendMessage(req.Context(), &args.Message)
	if err != nil {
		j.log.Debug("message rejected", zap.Error(err))
		return encodeError(err)
	}
	reply.Hash = hash
	return nil
}

type AddressArgs struct {
	Address core.Address `json:"address"`
}

type GetStateReply struct {
	State   core.CounterState `json:"state"`
	Balance core.Coins        `json:"balance"`
}

func (j *JSONRPCServer) GetState(req *http.Request, args *AddressArgs, reply *GetStateReply) error {
	state, err := j.chain.GetState(req.Context(), args.Address)
	if err != nil {
		return encodeError(err)
	}
	balance, err := j.chain.Balance(args.Address)
	if err != nil {
		return err
	}
	reply.State = *state
	reply.Balance = balance
	return nil
}

type TreasuryArgs struct {
	Name string `json:"name"`
}

type TreasuryReply struct {
	Address core.Address `json:"address"`
	Balance core.Coins   `json:"balance"`
}

func (j *JSONRPCServer) Treasury(_ *http.Request, args *TreasuryArgs, reply *TreasuryReply) error {
	t, err := j.chain.Treasury(args.Name)
	if err != nil {
		return err
	}
	balance, err := j.chain.Balance(t.Address())
	if err != nil {
		return err
	}
	reply.Address = t.Address()
	reply.Balance = balance
	return nil
}

type TransactionsReply struct {
	Transactions []*store.Transaction `json:"transactions"`
}

func (j *JSONRPCServer) Transactions(_ *http.Request, args *AddressArgs, reply *TransactionsReply) error {
	txs, err := j.chain.Transactions(args.Address)
	if err != nil {
		return fmt.Errorf("failed to list transactions: %w", err)
	}
	reply.Transactions = txs
	return nil
}

type BlockReply struct {
	Height  uint64    `json:"height"`
	Time    int64     `json:"time"`
	Hash    core.Hash `json:"hash"`
	TxCount int       `json:"txCount"`
}

func (j *JSONRPCServer) LastBlock(_ *http.Request, _ *struct{}, reply *BlockReply) error {
	block, err := j.chain.LastBlock()
	if err != nil {
		return encodeError(err)
	}
	reply.Height = block.Height
	reply.Time = block.Time
	reply.Hash = block.Hash
	reply.TxCount = block.TxCount
	return nil
}
