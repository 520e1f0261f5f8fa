package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	"golang.org/x/xerrors"

	"github.com/maestrojobs/maestro/catalog"
	"github.com/maestrojobs/maestro/ci"
	"github.com/maestrojobs/maestro/cluster"
	"github.com/maestrojobs/maestro/cluster/restapi"
	"github.com/maestrojobs/maestro/config"
	"github.com/maestrojobs/maestro/jobs"
	"github.com/maestrojobs/maestro/params"
)

var (
	appName = "maestro"
	appSha  = "populated-at-link-time"
	logger  *logrus.Entry
)

func main() {
	host, _ := os.Hostname()
	rootLogger := logrus.New()
	rootLogger.SetFormatter(new(logrus.JSONFormatter))
	logger = rootLogger.WithFields(logrus.Fields{
		"app":  appName,
		"sha":  appSha,
		"host": host,
	})

	if err := makeApp().Run(os.Args); err != nil {
		logger.WithField("err", err).Error("command failed")
		_ = os.Stderr.Sync()
		os.Exit(1)
	}
}

func makeApp() *cli.App {
	app := cli.NewApp()
	app.Name = appName
	app.Version = appSha
	app.Usage = "submit and track jobs on a remote job-execution cluster"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config",
			EnvVar: "MAESTRO_CONFIG",
			Usage:  "Path to the maestro config file",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:   "job-types",
			Usage:  "List the job types registered with the cluster",
			Action: runJobTypes,
		},
		{
			Name:      "describe",
			Usage:     "Describe the parameter wiring of a job type",
			ArgsUsage: "<job-type>",
			Action:    runDescribe,
		},
		{
			Name:      "submit",
			Usage:     "Submit a job and optionally wait for it to finish",
			ArgsUsage: "<job-type>",
			Flags: []cli.Flag{
				cli.StringSliceFlag{
					Name:  "param",
					Usage: "A tunable parameter as key=value; may be repeated",
				},
				cli.StringFlag{
					Name:  "dataset",
					Usage: "Path to a JSON dataset record supplying the dataset-bound parameters",
				},
				cli.StringFlag{
					Name:  "queue",
					Usage: "The queue to submit to (default: the job type's recommended queue)",
				},
				cli.IntFlag{
					Name:  "priority",
					Usage: "The job priority in the [0, 9] range",
				},
				cli.StringFlag{
					Name:  "tag",
					Usage: "A free-form tag for later lookup",
				},
				cli.BoolFlag{
					Name:  "wait",
					Usage: "Block until the job reaches a terminal state",
				},
				cli.DurationFlag{
					Name:  "poll-interval",
					Value: 30 * time.Second,
					Usage: "The cadence for status polls while waiting",
				},
				cli.DurationFlag{
					Name:  "timeout",
					Value: 2 * time.Hour,
					Usage: "The maximum time to wait for completion",
				},
			},
			Action: runSubmit,
		},
		{
			Name:      "status",
			Usage:     "Print the current status of a job",
			ArgsUsage: "<job-id>",
			Action:    runStatus,
		},
		{
			Name:      "wait",
			Usage:     "Block until a job reaches a terminal state",
			ArgsUsage: "<job-id>",
			Flags: []cli.Flag{
				cli.DurationFlag{
					Name:  "poll-interval",
					Value: 30 * time.Second,
					Usage: "The cadence for status polls",
				},
				cli.DurationFlag{
					Name:  "timeout",
					Value: 2 * time.Hour,
					Usage: "The maximum time to wait for completion",
				},
			},
			Action: runWait,
		},
		{
			Name:  "jobs",
			Usage: "List submitted jobs matching a filter",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "tag", Usage: "Match jobs with this tag"},
				cli.StringFlag{Name: "job-type", Usage: "Match jobs of this job type"},
				cli.StringFlag{Name: "queue", Usage: "Match jobs submitted to this queue"},
				cli.StringFlag{Name: "status", Usage: "Match jobs with this status, e.g. job-failed"},
			},
			Action: runJobs,
		},
		{
			Name:  "ci",
			Usage: "Operate the build-automation pipeline for a repository",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "repo", Usage: "The git HTTPS repository URL", Required: true},
				cli.StringFlag{Name: "branch", Usage: "The git branch"},
			},
			Subcommands: []cli.Command{
				{Name: "register", Usage: "Register the repository as a buildable job", Action: runCI(ciRegister)},
				{Name: "unregister", Usage: "Remove the repository from the build server", Action: runCI(ciUnregister)},
				{Name: "build", Usage: "Start a new build", Action: runCI(ciBuild)},
				{
					Name:  "build-status",
					Usage: "Print the status of a build (latest when no number is given)",
					Flags: []cli.Flag{
						cli.IntFlag{Name: "number", Usage: "The build number"},
					},
					Action: runCI(ciBuildStatus),
				},
				{Name: "stop", Usage: "Abort the latest build", Action: runCI(ciStop)},
				{
					Name:  "delete",
					Usage: "Delete the record of a finished build",
					Flags: []cli.Flag{
						cli.IntFlag{Name: "number", Usage: "The build number"},
					},
					Action: runCI(ciDelete),
				},
			},
		},
	}
	return app
}

func getAPI(appCtx *cli.Context) (cluster.API, *config.Config, error) {
	cfg, err := config.Load(appCtx.GlobalString("config"))
	if err != nil {
		return nil, nil, err
	}

	clientCfg := restapi.Config{
		Host:   cfg.Host,
		Logger: logger,
	}
	if cfg.Auth {
		clientCfg.Username = cfg.Username
		// The password is resolved out of the external secrets store
		// referenced by the config; the reference doubles as an
		// environment key for local overrides.
		clientCfg.Password = os.Getenv("MAESTRO_PASSWORD")
	}
	api, err := restapi.NewClient(clientCfg)
	if err != nil {
		return nil, nil, err
	}
	return api, cfg, nil
}

func runJobTypes(appCtx *cli.Context) error {
	api, _, err := getAPI(appCtx)
	if err != nil {
		return err
	}

	cat := catalog.New(api)
	jobTypes, err := cat.JobTypes(context.Background())
	if err != nil {
		return err
	}
	for id, resolver := range jobTypes {
		if label := resolver.Label(); label != "" {
			fmt.Printf("%s\t%s\n", id, label)
		} else {
			fmt.Println(id)
		}
	}
	return nil
}

func runDescribe(appCtx *cli.Context) error {
	jobType := appCtx.Args().First()
	if jobType == "" {
		return xerrors.Errorf("a job type must be specified")
	}
	api, _, err := getAPI(appCtx)
	if err != nil {
		return err
	}

	ctx := context.Background()
	resolver, err := catalog.New(api).JobType(ctx, jobType)
	if err != nil {
		return err
	}
	if err = resolver.Init(ctx); err != nil {
		return err
	}
	desc, err := resolver.Describe()
	if err != nil {
		return err
	}
	fmt.Print(desc)
	return nil
}

func runSubmit(appCtx *cli.Context) error {
	jobType := appCtx.Args().First()
	if jobType == "" {
		return xerrors.Errorf("a job type must be specified")
	}
	api, _, err := getAPI(appCtx)
	if err != nil {
		return err
	}

	ctx := context.Background()
	resolver := params.New(api, jobType, "")
	if err = resolver.Init(ctx); err != nil {
		return err
	}

	if datasetPath := appCtx.String("dataset"); datasetPath != "" {
		record, err := loadDatasetRecord(datasetPath)
		if err != nil {
			return err
		}
		if err = resolver.SetDatasetParams(record); err != nil {
			return err
		}
	}

	values, err := parseParamFlags(appCtx.StringSlice("param"))
	if err != nil {
		return err
	}
	if err = resolver.SetSubmitterParams(params.MapSource(values)); err != nil {
		return err
	}

	job, err := resolver.Submit(ctx, params.SubmitOptions{
		Queue:    appCtx.String("queue"),
		Priority: appCtx.Int("priority"),
		Tag:      appCtx.String("tag"),
	})
	if err != nil {
		return err
	}
	fmt.Println(job.ID())

	if !appCtx.Bool("wait") {
		return nil
	}
	st, err := job.WaitForCompletion(ctx, appCtx.Duration("poll-interval"), appCtx.Duration("timeout"))
	if err != nil {
		return err
	}
	fmt.Println(st)
	return nil
}

func runStatus(appCtx *cli.Context) error {
	jobID := appCtx.Args().First()
	if jobID == "" {
		return xerrors.Errorf("a job ID must be specified")
	}
	api, _, err := getAPI(appCtx)
	if err != nil {
		return err
	}

	st, err := api.Status(context.Background(), jobID)
	if err != nil {
		return err
	}
	fmt.Println(st)
	return nil
}

func runWait(appCtx *cli.Context) error {
	jobID := appCtx.Args().First()
	if jobID == "" {
		return xerrors.Errorf("a job ID must be specified")
	}
	api, _, err := getAPI(appCtx)
	if err != nil {
		return err
	}

	job := jobs.New(api, cluster.JobRecord{ID: jobID, Status: cluster.StatusQueued}, jobs.WithLogger(logger))
	st, err := job.WaitForCompletion(context.Background(), appCtx.Duration("poll-interval"), appCtx.Duration("timeout"))
	if err != nil {
		return err
	}
	fmt.Println(st)
	return nil
}

func runJobs(appCtx *cli.Context) error {
	api, _, err := getAPI(appCtx)
	if err != nil {
		return err
	}

	filter := cluster.Filter{
		Tag:     appCtx.String("tag"),
		JobType: appCtx.String("job-type"),
		Queue:   appCtx.String("queue"),
	}
	if statusFlag := appCtx.String("status"); statusFlag != "" {
		st, err := cluster.ParseStatus(statusFlag)
		if err != nil {
			return err
		}
		filter.Status = st
	}

	set, err := catalog.New(api).Jobs(context.Background(), filter)
	if err != nil {
		return err
	}
	for _, job := range set.Jobs() {
		rec := job.Record()
		fmt.Printf("%s\t%s\t%s\t%s\n", rec.ID, rec.Type, rec.Status, rec.SubmittedAt.Format(time.RFC3339))
	}
	return nil
}

type ciAction func(context.Context, *ci.Client, *cli.Context) error

func runCI(action ciAction) cli.ActionFunc {
	return func(appCtx *cli.Context) error {
		cfg, err := config.Load(appCtx.GlobalString("config"))
		if err != nil {
			return err
		}
		client, err := ci.NewClient(ci.Config{
			Host:   cfg.Host,
			Repo:   appCtx.Parent().String("repo"),
			Branch: appCtx.Parent().String("branch"),
			Logger: logger,
		})
		if err != nil {
			return err
		}
		return action(context.Background(), client, appCtx)
	}
}

func ciRegister(ctx context.Context, client *ci.Client, _ *cli.Context) error {
	return client.Register(ctx)
}

func ciUnregister(ctx context.Context, client *ci.Client, _ *cli.Context) error {
	return client.Unregister(ctx)
}

func ciBuild(ctx context.Context, client *ci.Client, _ *cli.Context) error {
	info, err := client.SubmitBuild(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("build %d started: %s\n", info.Number, info.URL)
	return nil
}

func ciBuildStatus(ctx context.Context, client *ci.Client, appCtx *cli.Context) error {
	info, err := client.BuildStatus(ctx, appCtx.Int("number"))
	if err != nil {
		return err
	}
	result := info.Result
	if info.Building {
		result = "BUILDING"
	}
	fmt.Printf("build %d: %s\n", info.Number, result)
	return nil
}

func ciStop(ctx context.Context, client *ci.Client, _ *cli.Context) error {
	return client.StopBuild(ctx)
}

func ciDelete(ctx context.Context, client *ci.Client, appCtx *cli.Context) error {
	return client.DeleteBuild(ctx, appCtx.Int("number"))
}

func loadDatasetRecord(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Errorf("read dataset record: %w", err)
	}
	var record map[string]interface{}
	if err = json.Unmarshal(data, &record); err != nil {
		return nil, xerrors.Errorf("decode dataset record: %w", err)
	}
	return record, nil
}

func parseParamFlags(pairs []string) (map[string]interface{}, error) {
	values := make(map[string]interface{}, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, xerrors.Errorf("invalid --param value %q; expected key=value", pair)
		}
		values[key] = value
	}
	return values, nil
}
