package rpc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/govm-net/counter/chain/store"
	"github.com/govm-net/counter/contract"
	"github.com/govm-net/counter/core"
	"github.com/gorilla/rpc/v2/json2"
)

var _ contract.Transport = (*JSONRPCClient)(nil)

// JSONRPCClient talks to a counter node. It satisfies contract.Transport.
type JSONRPCClient struct {
	uri  string
	http *http.Client
}

// NewJSONRPCClient targets the node at uri, e.g. http://127.0.0.1:9650
func NewJSONRPCClient(uri string, httpClient *http.Client) *JSONRPCClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	uri = strings.TrimSuffix(uri, "/")
	uri += JSONRPCEndpoint
	return &JSONRPCClient{uri: uri, http: httpClient}
}

func (cli *JSONRPCClient) sendRequest(ctx context.Context, method string, args any, reply any) error {
	body, err := json2.EncodeClientRequest(Name+"."+method, args)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cli.uri, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := cli.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s returned %d", ErrUnexpectedStatus, method, resp.StatusCode)
	}

	err = json2.DecodeClientResponse(resp.Body, reply)
	var rpcErr *json2.Error
	if errors.As(err, &rpcErr) {
		return decodeError(rpcErr)
	}
	return err
}

func (cli *JSONRPCClient) Ping(ctx context.Context) (bool, error) {
	resp := new(PingReply)
	err := cli.sendRequest(ctx, "Ping", struct{}{}, resp)
	return resp.Success, err
}

func (cli *JSONRPCClient) SendMessage(ctx context.Context, msg *core.Message) (core.Hash, error) {
	resp := new(SendMessageReply)
	err := cli.sendRequest(ctx, "SendMessage", &SendMessageArgs{Message: *msg}, resp)
	return resp.Hash, err
}

// GetState returns core.ErrNotFound when nothing is deployed at addr
func (cli *JSONRPCClient) GetState(ctx context.Context, addr core.Address) (*core.CounterState, error) {
	resp, err := cli.Account(ctx, addr)
	if err != nil {
		return nil, err
	}
	return &resp.State, nil
}

// Account returns the counter state together with the contract balance
func (cli *JSONRPCClient) Account(ctx context.Context, addr core.Address) (*GetStateReply, error) {
	resp := new(GetStateReply)
	if err := cli.sendRequest(ctx, "GetState", &AddressArgs{Address: addr}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Treasury returns a funded sender managed by the node
func (cli *JSONRPCClient) Treasury(ctx context.Context, name string) (*TreasuryReply, error) {
	resp := new(TreasuryReply)
	if err := cli.sendRequest(ctx, "Treasury", &TreasuryArgs{Name: name}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (cli *JSONRPCClient) Transactions(ctx context.Context, addr core.Address) ([]*store.Transaction, error) {
	resp := new(TransactionsReply)
	if err := cli.sendRequest(ctx, "Transactions", &AddressArgs{Address: addr}, resp); err != nil {
		return nil, err
	}
	return resp.Transactions, nil
}

// LastBlock returns core.ErrNotFound before the first block
func (cli *JSONRPCClient) LastBlock(ctx context.Context) (*BlockReply, error) {
	resp := new(BlockReply)
	if err := cli.sendRequest(ctx, "LastBlock", struct{}{}, resp); err != nil {
		return nil, err
	}
	return resp, nil
}
