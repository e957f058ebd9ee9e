package compose

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

const (
	NetworkName = "testing_net"
	ServerPort  = "12345"
)

// File é o subconjunto do docker-compose usado para subir servidor + agências
type File struct {
	Name     string             `yaml:"name"`
	Services Services           `yaml:"services"`
	Networks map[string]Network `yaml:"networks"`
}

type Service struct {
	ContainerName string   `yaml:"container_name"`
	Image         string   `yaml:"image"`
	Entrypoint    string   `yaml:"entrypoint"`
	Environment   []string `yaml:"environment,omitempty"`
	Networks      []string `yaml:"networks,omitempty"`
	DependsOn     []string `yaml:"depends_on,omitempty"`
	Volumes       []string `yaml:"volumes,omitempty"`
}

type NamedService struct {
	Name    string
	Service Service
}

// Services mantém a ordem de inserção no YAML (server, client1, client2, ..., client10)
type Services []NamedService

func (s Services) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, ns := range s {
		var val yaml.Node
		if err := val.Encode(ns.Service); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: ns.Name}, &val)
	}
	return node, nil
}

type Network struct {
	IPAM IPAM `yaml:"ipam"`
}

type IPAM struct {
	Driver string   `yaml:"driver"`
	Config []Subnet `yaml:"config"`
}

type Subnet struct {
	Subnet string `yaml:"subnet"`
}

// Generate monta o compose com o servidor e clients agências (client1..clientN)
func Generate(clients int) (File, error) {
	if clients <= 0 {
		return File{}, fmt.Errorf("clients must be positive, got %d", clients)
	}

	services := Services{{
		Name: "server",
		Service: Service{
			ContainerName: "server",
			Image:         "lottery-server:latest",
			Entrypoint:    "/lottery-server",
			Environment: []string{
				"SERVER_PORT=" + ServerPort,
				"SERVER_LISTEN_BACKLOG=" + fmt.Sprint(clients),
				"LOTTERY_AGENCIES=" + fmt.Sprint(clients),
				"BETS_FILE=/data/bets.csv",
				"LOG_LEVEL=debug",
			},
			Networks: []string{NetworkName},
		},
	}}

	for i := 1; i <= clients; i++ {
		name := fmt.Sprintf("client%d", i)
		data := fmt.Sprintf("agency-%d.csv", i)
		services = append(services, NamedService{
			Name: name,
			Service: Service{
				ContainerName: name,
				Image:         "agency-client:latest",
				Entrypoint:    "/agency-client /config.yaml",
				Environment: []string{
					fmt.Sprintf("CLI_ID=%d", i),
					"CLI_LOG_LEVEL=debug",
					"CLI_DATA_FILE=/data/" + data,
				},
				Networks:  []string{NetworkName},
				DependsOn: []string{"server"},
				Volumes: []string{
					"./client/config.yaml:/config.yaml",
					"./.data/" + data + ":/data/" + data,
				},
			},
		})
	}

	return File{
		Name:     "tp0",
		Services: services,
		Networks: map[string]Network{
			NetworkName: {IPAM: IPAM{Driver: "default", Config: []Subnet{{Subnet: "172.25.125.0/24"}}}},
		},
	}, nil
}

// Write serializa o compose em YAML com indentação de 2 espaços
func Write(w io.Writer, f File) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encode compose: %w", err)
	}
	return enc.Close()
}
