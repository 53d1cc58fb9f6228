package main

import (
	"fmt"
	"log"
	"os"

	"github.com/samuelfneumann/goddpg/catddpg"
	"github.com/samuelfneumann/goddpg/checkpoint"
	"github.com/samuelfneumann/goddpg/initwfn"
	"github.com/samuelfneumann/goddpg/network"
	"github.com/samuelfneumann/goddpg/tracker"
	"github.com/samuelfneumann/goddpg/transition"
	"golang.org/x/exp/rand"
)

func main() {
	var seed uint64 = 192382

	const features = 4
	const dimAct = 2
	const batchSize = 32

	// Create the network constructors
	init, err := initwfn.NewGlorotU(1.0)
	if err != nil {
		log.Fatal(err)
	}

	enc, err := network.NewMLPEncoder(features, []int{32}, []bool{true},
		[]*network.Activation{network.ReLU()}, init)
	if err != nil {
		log.Fatal(err)
	}

	policyHead, err := network.NewSoftmaxPolicyHead(nil, nil, nil, init)
	if err != nil {
		log.Fatal(err)
	}

	valueHead, err := network.NewLinearValueHead(nil, nil, nil, init)
	if err != nil {
		log.Fatal(err)
	}

	// Create the learning algorithm
	config := catddpg.NewConfig(dimAct, batchSize)
	config.UpdateTargetFreq = 100
	config.SaveModelFreq = 500
	config.LogFreq = 50

	agent, err := catddpg.New(config, enc, policyHead, valueHead, seed)
	if err != nil {
		log.Fatal(err)
	}
	defer agent.Close()

	scalars := tracker.NewScalars("./data.bin")
	agent.SetTracker(scalars)

	if err := os.MkdirAll("./models", 0o755); err != nil {
		log.Fatal(err)
	}
	agent.SetCheckpointer(checkpoint.NewFile("./models", "model",
		agent.Networks()...))

	// Train on batches drawn from a synthetic task: action 0 pays off
	// when the first feature is negative, action 1 when it is positive
	rng := rand.New(rand.NewSource(seed))
	for step := 0; step < 2000; step++ {
		batch, err := syntheticBatch(agent, rng, batchSize, features)
		if err != nil {
			log.Fatal(err)
		}
		if err := agent.Update(batch); err != nil {
			log.Fatal(err)
		}
	}

	if err := scalars.Save(); err != nil {
		log.Fatal(err)
	}

	records, err := tracker.LoadData("./data.bin")
	if err != nil {
		log.Fatal(err)
	}
	for _, record := range records[len(records)-5:] {
		fmt.Println(record.Step, record.Metrics)
	}
}

// syntheticBatch stands in for an external replay source: observations
// are uniform in [-1, 1), actions come from the agent's own policy, and
// the reward is +1 when the action matches the sign of the first
// feature and -1 otherwise.
func syntheticBatch(agent *catddpg.CatDDPG, rng *rand.Rand, batchSize,
	features int) (transition.Batch, error) {
	obs := make([]float64, batchSize*features)
	nextObs := make([]float64, batchSize*features)
	for i := range obs {
		obs[i] = rng.Float64()*2 - 1
		nextObs[i] = rng.Float64()*2 - 1
	}

	actions, err := agent.GetAction(obs)
	if err != nil {
		return transition.Batch{}, err
	}

	rewards := make([]float64, batchSize)
	dones := make([]float64, batchSize)
	for i := 0; i < batchSize; i++ {
		rewards[i] = -1
		if (obs[i*features] > 0) == (actions[i] == 1) {
			rewards[i] = 1
		}
		if rng.Float64() < 0.01 {
			dones[i] = 1
		}
	}

	return transition.New(obs, actions, rewards, dones, nextObs), nil
}
