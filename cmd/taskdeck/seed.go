package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/osvaldoandrade/taskdeck/pkg/domain"
	"github.com/osvaldoandrade/taskdeck/pkg/schema"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// seedFile is the YAML accepted by `taskdeck seed`:
//
//	tasks:
//	  - name: render
//	    jobDefinition: render:3
//	    jobQueue: gpu
//	    schema:
//	      type: object
//	      required: [frames]
type seedFile struct {
	Tasks []seedTask `yaml:"tasks"`
}

type seedTask struct {
	ID            string `yaml:"id"`
	Name          string `yaml:"name"`
	JobDefinition string `yaml:"jobDefinition"`
	JobQueue      string `yaml:"jobQueue"`
	Schema        any    `yaml:"schema"`
}

func (t seedTask) task() (domain.Task, error) {
	name := strings.TrimSpace(t.Name)
	if name == "" {
		return domain.Task{}, errors.New("name is required")
	}
	if t.Schema == nil {
		return domain.Task{}, fmt.Errorf("%s: schema is required", name)
	}
	raw, err := json.Marshal(t.Schema)
	if err != nil {
		return domain.Task{}, fmt.Errorf("%s: schema: %w", name, err)
	}
	sch, err := schema.Parse(raw)
	if err != nil {
		return domain.Task{}, fmt.Errorf("%s: %w", name, err)
	}
	out := domain.Task{Name: name, Validator: sch, JobDefinition: t.JobDefinition, JobQueue: t.JobQueue}
	if strings.TrimSpace(t.ID) != "" {
		if out.ID, err = uuid.Parse(strings.TrimSpace(t.ID)); err != nil {
			return domain.Task{}, fmt.Errorf("%s: invalid id: %w", name, err)
		}
	}
	return out, nil
}

func loadSeedFile(path string) ([]domain.Task, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(f.Tasks) == 0 {
		return nil, fmt.Errorf("%s: no tasks", path)
	}
	tasks := make([]domain.Task, 0, len(f.Tasks))
	for i, st := range f.Tasks {
		t, err := st.task()
		if err != nil {
			return nil, fmt.Errorf("tasks[%d]: %w", i, err)
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func seedCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:     "seed <file.yaml>",
		Short:   "Register tasks from a YAML file (admin token)",
		Example: "taskdeck seed examples/tasks.yaml",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks, err := loadSeedFile(args[0])
			if err != nil {
				return err
			}
			c, err := s.client()
			if err != nil {
				return err
			}

			bar := progressbar.NewOptions(len(tasks),
				progressbar.OptionSetWriter(cmd.ErrOrStderr()),
				progressbar.OptionSetDescription("Registering tasks"),
				progressbar.OptionSetWidth(18),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
			var failed []string
			for _, t := range tasks {
				saved, err := c.RegisterTask(cmd.Context(), t)
				_ = bar.Add(1)
				if err != nil {
					failed = append(failed, fmt.Sprintf("%s: %v", t.Name, err))
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", s.ui.ok("[OK]"), saved.Name, s.ui.dim(saved.ID.String()))
			}
			_ = bar.Finish()

			if len(failed) > 0 {
				for _, f := range failed {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", s.ui.warn("[WARN]"), f)
				}
				return fmt.Errorf("%d of %d tasks were not registered", len(failed), len(tasks))
			}
			return nil
		},
	}
}
