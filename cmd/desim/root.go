package main

import (
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/desimlab/desim/examples"
	"github.com/desimlab/desim/sim"
)

var (
	verbose bool
	seed    int64
)

var rootCmd = &cobra.Command{
	Use:   "desim",
	Short: "Run the bundled discrete event simulation models",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A .env file may carry defaults; its absence is fine.
		_ = godotenv.Load()

		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
	},
}

var carwashDuration float64

var carwashCmd = &cobra.Command{
	Use:   "carwash",
	Short: "Cars compete for a limited number of washing machines",
	Run: func(cmd *cobra.Command, args []string) {
		logger := logrus.StandardLogger()

		stats := examples.RunCarwash(examples.CarwashConfig{
			NumMachines: 2,
			WashTime:    5,
			CarInterval: 7,
			InitialCars: 4,
			Duration:    sim.VTime(carwashDuration),
			Seed:        seed,
		}, logger)

		logrus.WithFields(logrus.Fields{
			"arrived": stats.CarsArrived,
			"washed":  stats.CarsWashed,
		}).Info("carwash finished")
	},
}

var bankCustomers int

var bankCmd = &cobra.Command{
	Use:   "bank",
	Short: "A bank counter with impatient customers",
	Run: func(cmd *cobra.Command, args []string) {
		logger := logrus.StandardLogger()

		stats := examples.RunBank(examples.BankConfig{
			NumCustomers:    bankCustomers,
			ArrivalInterval: 10,
			MinPatience:     1,
			MaxPatience:     3,
			ServiceTime:     12,
			Seed:            seed,
		}, logger)

		logrus.WithFields(logrus.Fields{
			"served":  stats.Served,
			"reneged": stats.Reneged,
		}).Info("bank closed")
	},
}

var machineShopWeeks int

var machineShopCmd = &cobra.Command{
	Use:   "machineshop",
	Short: "Machines break down and compete for a single repairman",
	Run: func(cmd *cobra.Command, args []string) {
		logger := logrus.StandardLogger()

		stats := examples.RunMachineShop(examples.MachineShopConfig{
			NumMachines:       10,
			PartTimeMean:      10,
			PartTimeSd:        2,
			MeanTimeToFailure: 300,
			RepairTime:        30,
			Duration:          sim.VTime(machineShopWeeks * 7 * 24 * 60),
			Seed:              seed,
		}, logger)

		logrus.WithFields(logrus.Fields{
			"parts":   stats.PartsMade,
			"repairs": stats.Repairs,
		}).Info("machine shop finished")
	},
}

var clockCmd = &cobra.Command{
	Use:   "clock",
	Short: "Two tickers interleaving on one timeline",
	Run: func(cmd *cobra.Command, args []string) {
		for _, tick := range examples.RunClock(0.5, 1.0, 2.0) {
			logrus.Info(tick)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(
		&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().Int64Var(
		&seed, "seed", 42, "random seed for the models")

	carwashCmd.Flags().Float64Var(
		&carwashDuration, "duration", 200, "simulated minutes to run")
	bankCmd.Flags().IntVar(
		&bankCustomers, "customers", 10, "number of customers to generate")
	machineShopCmd.Flags().IntVar(
		&machineShopWeeks, "weeks", 4, "simulated weeks to run")

	rootCmd.AddCommand(carwashCmd)
	rootCmd.AddCommand(bankCmd)
	rootCmd.AddCommand(machineShopCmd)
	rootCmd.AddCommand(clockCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Fatal(err)
	}
}
