package main

import (
	"fmt"
	"log"

	"github.com/samuelfneumann/gonav/completion"
	"github.com/samuelfneumann/gonav/environment/nav"
	"github.com/samuelfneumann/gonav/experiment"
	"github.com/samuelfneumann/gonav/experiment/trackers"
	"github.com/samuelfneumann/gonav/physics/box2dworld"
	"github.com/samuelfneumann/gonav/render/topdown"
)

func main() {
	var seed uint64 = 192382

	// Interactive door-opening navigation in a 10 x 10 room
	config := nav.DefaultConfig()
	config.Task = nav.Interactive
	config.InitialPos = []float64{2, 2, 0}
	config.TargetPos = []float64{8, 8, 0}
	config.Output = []string{"sensor", "auxiliary_sensor", "rgb",
		"rgb_filled", "scan", "bump"}
	config.AdditionalStatesDim = 7
	config.AuxiliarySensorDim = 42
	config.Resolution = 64
	config.SlackReward = 0
	config.CollisionRewardWeight = -0.1
	config.MaxStep = 300

	// Create the scene
	world, err := box2dworld.NewWorld(1.0 / 240.0)
	if err != nil {
		log.Fatal(err)
	}

	room, err := world.AddRoom(10, 10)
	if err != nil {
		log.Fatal(err)
	}
	door, err := world.AddDoor(5, 5, 1)
	if err != nil {
		log.Fatal(err)
	}
	robot, err := box2dworld.NewRobot(world, config.InitialPos[0],
		config.InitialPos[1])
	if err != nil {
		log.Fatal(err)
	}

	scene := nav.InteractiveScene{
		Door:           door.Body,
		DoorAxisJoint:  door.AxisJoint,
		DoorHandleLink: door.HandleLink,
		DoorPosition:   door.Position,
	}
	task, err := nav.NewInteractive(world, robot, scene, config)
	if err != nil {
		log.Fatal(err)
	}

	starter, err := nav.NewPoseStarter(config)
	if err != nil {
		log.Fatal(err)
	}

	// Overhead camera and learned RGB completion
	view := box2dworld.NewSceneView(room, &door, robot,
		func() (float64, float64) {
			target := task.Target()
			return target.X, target.Y
		})
	renderer, err := topdown.New(view, config.Resolution)
	if err != nil {
		log.Fatal(err)
	}

	// Mark the first subgoal, the door handle, in the rendered imagery
	handle, err := world.LinkPose(door.Body, door.HandleLink)
	if err != nil {
		log.Fatal(err)
	}
	renderer.SetMarkers([][2]float64{
		{handle.Position.X, handle.Position.Y},
	})
	completer, err := completion.NewNet(config.Resolution, 256)
	if err != nil {
		log.Fatal(err)
	}

	env, err := nav.New(config, world, robot, task, starter, renderer,
		completer)
	if err != nil {
		log.Fatal(err)
	}

	// Roll out a uniform random policy
	policy := experiment.NewUniformRandom(env, seed)
	rollout := experiment.NewRollout(env, policy, 10_000,
		trackers.NewReturn("./return.bin"),
		trackers.NewEpisodeLength("./lengths.bin"),
		trackers.NewSuccessRate("./successes.bin"),
	)

	if err := rollout.Run(); err != nil {
		log.Fatal(err)
	}
	if err := rollout.Save(); err != nil {
		log.Fatal(err)
	}

	fmt.Println(env.CurrentTimeStep())
}
