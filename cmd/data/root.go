package data

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ValentinKolb/dMerge/api"
	cmdUtil "github.com/ValentinKolb/dMerge/cmd/util"
)

var (
	// DataCommands groups the client commands talking to a running server.
	DataCommands = &cobra.Command{
		Use:   "data",
		Short: "Interact with a running dMerge server",
	}

	submitCmd = &cobra.Command{
		Use:   "submit <file>",
		Short: "Submit a DATA A document from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE:  runSubmit,
	}

	getCmd = &cobra.Command{
		Use:   "get",
		Short: "Print the current merged DATA C document",
		RunE:  runGet,
	}
)

func init() {
	cobra.OnInitialize(cmdUtil.InitConfig)
	cmdUtil.SetupClientFlags(DataCommands)

	DataCommands.AddCommand(submitCmd)
	DataCommands.AddCommand(getCmd)
	DataCommands.AddCommand(perfCmd)
}

// newClient builds the API client from the common connection flags.
func newClient(cmd *cobra.Command) (*api.Client, error) {
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return nil, err
	}
	return api.NewClient(
		viper.GetString("server"),
		cmdUtil.GetClientTimeout(),
		viper.GetInt("retries"),
	)
}

func runSubmit(cmd *cobra.Command, args []string) error {
	client, err := newClient(cmd)
	if err != nil {
		return err
	}
	defer client.Close()

	body, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	if err := client.SubmitDataA(body); err != nil {
		return err
	}

	fmt.Println("ok")
	return nil
}

func runGet(cmd *cobra.Command, _ []string) error {
	client, err := newClient(cmd)
	if err != nil {
		return err
	}
	defer client.Close()

	value, ok, err := client.GetDataC()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("DATA C not available")
	}

	fmt.Println(string(value))
	return nil
}
