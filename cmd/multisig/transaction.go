package main

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"
)

var (
	txPayload     string
	txDescription string
	txAccountId   string
	txNetwork     string
	txKeyList     []string
	txThreshold   int
	txPublicKey   string
	txSignature   string
	txFilterKey   string
	txFilterState string
	txPage        int
	txPageSize    int

	txCreateCmd = &cobra.Command{
		Use:   "create",
		Short: "register a transaction to be signed",
		Long: "this command lets you register a serialized transaction along " +
			"with the list of public keys allowed to sign it and the number of " +
			"signatures required before it gets submitted to the ledger",
		RunE: txCreate,
	}
	txSignCmd = &cobra.Command{
		Use:   "sign <id>",
		Short: "add a signature to a transaction",
		Long: "this command lets you add a signature, produced by one of the " +
			"authorized keys, to a registered transaction",
		Args: cobra.ExactArgs(1),
		RunE: txSign,
	}
	txGetCmd = &cobra.Command{
		Use:   "get <id>",
		Short: "get info about a transaction",
		Args:  cobra.ExactArgs(1),
		RunE:  txGet,
	}
	txListCmd = &cobra.Command{
		Use:   "list",
		Short: "list registered transactions",
		Long: "this command lets you list the registered transactions, " +
			"optionally filtered by public key, status or network",
		RunE: txList,
	}
	txDeleteCmd = &cobra.Command{
		Use:   "delete <id>",
		Short: "delete a transaction",
		Args:  cobra.ExactArgs(1),
		RunE:  txDelete,
	}
	txCmd = &cobra.Command{
		Use:   "transaction",
		Short: "interact with multisig transaction interface",
		Long: "this command lets you register transactions, collect signatures " +
			"for them and inspect their signing progress",
	}
)

func init() {
	txCreateCmd.Flags().StringVar(
		&txPayload, "payload", "", "hex serialized transaction to be signed",
	)
	txCreateCmd.Flags().StringVar(
		&txDescription, "description", "", "optional human readable description",
	)
	txCreateCmd.Flags().StringVar(
		&txAccountId, "account-id", "", "id of the account originating the transaction",
	)
	txCreateCmd.Flags().StringVar(
		&txNetwork, "network", "testnet", "target ledger network",
	)
	txCreateCmd.Flags().StringArrayVar(
		&txKeyList, "key", nil, "public key allowed to sign, repeatable",
	)
	txCreateCmd.Flags().IntVar(
		&txThreshold, "threshold", 0,
		"number of signatures required, 0 means all keys must sign",
	)

	txSignCmd.Flags().StringVar(
		&txPublicKey, "public-key", "", "public key the signature belongs to",
	)
	txSignCmd.Flags().StringVar(
		&txSignature, "signature", "", "hex signature of the transaction payload",
	)

	txListCmd.Flags().StringVar(
		&txFilterKey, "public-key", "", "list only transactions signable by this key",
	)
	txListCmd.Flags().StringVar(
		&txFilterState, "status", "", "list only transactions with this status",
	)
	txListCmd.Flags().IntVar(&txPage, "page", 1, "page number")
	txListCmd.Flags().IntVar(&txPageSize, "page-size", 0, "page size")

	txCmd.AddCommand(txCreateCmd, txSignCmd, txGetCmd, txListCmd, txDeleteCmd)
}

func txCreate(_ *cobra.Command, _ []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	reply, err := client.call(http.MethodPost, "/v1/transactions", map[string]interface{}{
		"payload":     txPayload,
		"description": txDescription,
		"account_id":  txAccountId,
		"network":     txNetwork,
		"key_list":    txKeyList,
		"threshold":   txThreshold,
	})
	if err != nil {
		printErr(err)
		return nil
	}

	jsonReply, err := jsonResponse(reply)
	if err != nil {
		printErr(err)
		return nil
	}

	fmt.Println(jsonReply)
	return nil
}

func txSign(_ *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	path := fmt.Sprintf("/v1/transactions/%s/signature", args[0])
	reply, err := client.call(http.MethodPut, path, map[string]interface{}{
		"public_key": txPublicKey,
		"signature":  txSignature,
	})
	if err != nil {
		printErr(err)
		return nil
	}

	jsonReply, err := jsonResponse(reply)
	if err != nil {
		printErr(err)
		return nil
	}

	fmt.Println(jsonReply)
	return nil
}

func txGet(_ *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	reply, err := client.call(
		http.MethodGet, fmt.Sprintf("/v1/transactions/%s", args[0]), nil,
	)
	if err != nil {
		printErr(err)
		return nil
	}

	jsonReply, err := jsonResponse(reply)
	if err != nil {
		printErr(err)
		return nil
	}

	fmt.Println(jsonReply)
	return nil
}

func txList(_ *cobra.Command, _ []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	query := url.Values{}
	if len(txFilterKey) > 0 {
		query.Set("public_key", txFilterKey)
	}
	if len(txFilterState) > 0 {
		query.Set("status", txFilterState)
	}
	if txPage > 0 {
		query.Set("page", fmt.Sprintf("%d", txPage))
	}
	if txPageSize > 0 {
		query.Set("page_size", fmt.Sprintf("%d", txPageSize))
	}

	path := "/v1/transactions"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	reply, err := client.call(http.MethodGet, path, nil)
	if err != nil {
		printErr(err)
		return nil
	}

	jsonReply, err := jsonResponse(reply)
	if err != nil {
		printErr(err)
		return nil
	}

	fmt.Println(jsonReply)
	return nil
}

func txDelete(_ *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	if _, err := client.call(
		http.MethodDelete, fmt.Sprintf("/v1/transactions/%s", args[0]), nil,
	); err != nil {
		printErr(err)
		return nil
	}

	fmt.Println("transaction deleted")
	return nil
}
