package rpc_submitter

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"
	"time"

	"github.com/equitas-foundation/multisigd/internal/core/domain"
	"github.com/equitas-foundation/multisigd/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

const submitMethod = "submittransaction"

// service is a JSON RPC (over HTTP(s)) implementation of the
// ports.LedgerSubmitter interface, talking to a gateway node that
// deserializes the transaction payload, attaches the signatures and executes
// it against the target network.
type service struct {
	serverAddr string
	httpClient *http.Client

	log func(format string, a ...interface{})
}

type rpcRequest struct {
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	Id      int64         `json:"id"`
	JsonRpc string        `json:"jsonrpc"`
}

type rpcResponse struct {
	Id     int64           `json:"id"`
	Result json.RawMessage `json:"result"`
	Err    interface{}     `json:"error"`
}

type submitResult struct {
	Accepted bool `json:"accepted"`
}

func NewService(addr string) (ports.LedgerSubmitter, error) {
	if len(addr) == 0 {
		return nil, fmt.Errorf("missing ledger gateway address")
	}

	var httpClient *http.Client
	useSSL := strings.HasPrefix(addr, "https")
	if useSSL {
		// #nosec
		t := &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
		httpClient = &http.Client{Transport: t}
	} else {
		httpClient = &http.Client{}
	}

	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("ledger submitter: %s", format)
		log.Debugf(format, a...)
	}

	return &service{
		serverAddr: addr,
		httpClient: httpClient,
		log:        logFn,
	}, nil
}

// Submit forwards the payload and the ordered (key, signature) pairs to the
// gateway. Signers are serialized as parallel arrays paired by index. A
// false return with nil error means the ledger rejected the transaction,
// a non-nil error means the submission could not be carried out.
func (s *service) Submit(
	ctx context.Context, network, payload string, signers []domain.Signer,
) (bool, error) {
	signedKeys := make([]string, 0, len(signers))
	signatures := make([]string, 0, len(signers))
	for _, signer := range signers {
		signedKeys = append(signedKeys, signer.PublicKey)
		signatures = append(signatures, signer.Signature)
	}

	resp, err := s.call(ctx, submitMethod, []interface{}{
		network, payload, signedKeys, signatures,
	})
	if err != nil {
		return false, err
	}

	var result submitResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return false, fmt.Errorf("invalid gateway response: %s", err)
	}

	s.log("submitted transaction to %s, accepted: %t", network, result.Accepted)
	return result.Accepted, nil
}

func (s *service) call(
	ctx context.Context, method string, params []interface{},
) (*rpcResponse, error) {
	req := rpcRequest{
		Method:  method,
		Params:  params,
		Id:      time.Now().UnixNano(),
		JsonRpc: "2.0",
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodPost, s.serverAddr, bytes.NewReader(payload),
	)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	body, err := ioutil.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf(
			"gateway returned status %d: %s", httpResp.StatusCode, string(body),
		)
	}

	var resp rpcResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	if resp.Err != nil {
		return nil, fmt.Errorf("gateway error: %v", resp.Err)
	}
	return &resp, nil
}
