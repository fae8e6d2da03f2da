package nav

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/samuelfneumann/gonav/observation"
	"github.com/samuelfneumann/gonav/physics"
	"github.com/samuelfneumann/gonav/timestep"
)

// testStarter places the robot at a fixed pose without the ground
// lift applied by the production starters
type testStarter struct {
	pose   physics.Pose
	target r3.Vec
}

func (s *testStarter) Place(facade physics.Facade, robot physics.Robot,
	burstTicks int) (Placement, error) {
	if err := robot.SetPose(s.pose); err != nil {
		return Placement{}, err
	}
	return Placement{Initial: s.pose, Target: s.target}, nil
}

func newEnvFixture(t *testing.T,
	config *Config) (*Env, *fakeFacade, *fakeRobot) {
	t.Helper()

	facade := newFakeFacade()
	robot := newFakeRobot()
	task := NewPointGoal(robot, r3.Vec{X: 5})
	starter := &testStarter{target: r3.Vec{X: 5}}

	env, err := New(config, facade, robot, task, starter, nil, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return env, facade, robot
}

func pointGoalConfig() *Config {
	config := DefaultConfig()
	config.Output = []string{"sensor"}
	config.ActionTimestep = 1.0 / 240.0
	return config
}

func TestEnvReset(t *testing.T) {
	env, _, _ := newEnvFixture(t, pointGoalConfig())

	step, err := env.Reset()
	if err != nil {
		t.Fatalf("reset: %v", err)
	}

	if !step.First() {
		t.Errorf("expected a First timestep, got %v", step.StepType)
	}
	if step.Number != 0 {
		t.Errorf("expected step number 0, got %v", step.Number)
	}

	sensor, err := step.Observation.Vector(observation.Sensor)
	if err != nil {
		t.Fatalf("vector: %v", err)
	}
	if sensor.AtVec(0) != 5 {
		t.Errorf("expected the goal 5 units ahead, got %v",
			sensor.AtVec(0))
	}
}

func TestEnvResetRejectsDegenerateGoal(t *testing.T) {
	config := pointGoalConfig()

	facade := newFakeFacade()
	robot := newFakeRobot()
	task := NewPointGoal(robot, r3.Vec{X: 5})

	// The starter drops the robot exactly on the goal
	starter := &testStarter{
		pose:   physics.Pose{Position: r3.Vec{X: 5}},
		target: r3.Vec{X: 5},
	}

	env, err := New(config, facade, robot, task, starter, nil, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if _, err := env.Reset(); err == nil {
		t.Error("expected an error for a goal coinciding with the robot")
	}
}

func TestEnvStepAdvancesSubTicks(t *testing.T) {
	config := pointGoalConfig()
	config.ActionTimestep = 10.0 / 240.0
	env, facade, _ := newEnvFixture(t, config)

	if _, err := env.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}

	before := facade.ticks
	if _, _, err := env.Step(mat.NewVecDense(2, nil)); err != nil {
		t.Fatalf("step: %v", err)
	}

	if facade.ticks-before != 10 {
		t.Errorf("expected 10 physics ticks per control step, got %v",
			facade.ticks-before)
	}
}

func TestEnvStepToSuccess(t *testing.T) {
	config := pointGoalConfig()
	env, _, robot := newEnvFixture(t, config)

	if _, err := env.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}

	step, done, err := env.Step(mat.NewVecDense(2, nil))
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if done || step.Last() {
		t.Fatal("the episode must not end away from the goal")
	}
	if step.Number != 1 {
		t.Errorf("expected step number 1, got %v", step.Number)
	}

	// Move the robot to within the distance tolerance of the goal
	robot.position = r3.Vec{X: 4.9}
	step, done, err = env.Step(mat.NewVecDense(2, nil))
	if err != nil {
		t.Fatalf("step: %v", err)
	}

	if !done || !step.Last() {
		t.Fatal("expected the episode to end at the goal")
	}
	if step.End() != timestep.TerminalStateReached {
		t.Errorf("expected end type %v, got %v",
			timestep.TerminalStateReached, step.End())
	}
	if !step.Success() {
		t.Error("expected the success flag to be set")
	}

	// Shaping plus the success bonus dominate the reward
	if step.Reward < config.SuccessReward {
		t.Errorf("expected at least the success reward %v, got %v",
			config.SuccessReward, step.Reward)
	}

	// Stepping a finished episode without automatic reset is an error
	if _, _, err := env.Step(mat.NewVecDense(2, nil)); err == nil {
		t.Error("expected an error when stepping a finished episode")
	}
}

func TestEnvShapingRewardSign(t *testing.T) {
	env, _, robot := newEnvFixture(t, pointGoalConfig())

	if _, err := env.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}

	// Progress toward the goal earns a positive shaped reward
	robot.position = r3.Vec{X: 1}
	step, _, err := env.Step(mat.NewVecDense(2, nil))
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if step.Reward <= 0 {
		t.Errorf("expected a positive reward for progress, got %v",
			step.Reward)
	}

	// Retreating from the goal earns a negative shaped reward
	robot.position = r3.Vec{}
	step, _, err = env.Step(mat.NewVecDense(2, nil))
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if step.Reward >= 0 {
		t.Errorf("expected a negative reward for retreating, got %v",
			step.Reward)
	}
}

func TestEnvAutomaticReset(t *testing.T) {
	config := pointGoalConfig()
	config.AutomaticReset = true
	env, _, robot := newEnvFixture(t, config)

	if _, err := env.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}

	robot.position = r3.Vec{X: 4.9}
	step, done, err := env.Step(mat.NewVecDense(2, nil))
	if err != nil {
		t.Fatalf("step: %v", err)
	}

	if !done {
		t.Fatal("expected the episode to end")
	}
	if !step.First() {
		t.Errorf("expected the first step of the next episode, got %v",
			step.StepType)
	}
	if step.Number != 0 {
		t.Errorf("expected step number 0 after automatic reset, got %v",
			step.Number)
	}

	// The ended episode's outcome rides along in the info metadata
	last, ok := step.Info[timestep.InfoLastObservation].(*observation.Bundle)
	if !ok || last == nil {
		t.Fatal("expected the final observation in the info metadata")
	}
	if success, ok := step.Info[timestep.InfoSuccess].(bool); !ok ||
		!success {
		t.Error("expected a successful outcome in the info metadata")
	}
	if length, ok := step.Info[timestep.InfoEpisodeLength].(int); !ok ||
		length != 1 {
		t.Errorf("expected episode length 1, got %v",
			step.Info[timestep.InfoEpisodeLength])
	}
}

func TestEnvSpecs(t *testing.T) {
	env, _, _ := newEnvFixture(t, pointGoalConfig())

	action := env.ActionSpec()
	if action.Shape.Len() != 2 {
		t.Errorf("expected 2 action dimensions, got %v",
			action.Shape.Len())
	}
	if action.LowerBound.AtVec(0) != -1 || action.UpperBound.AtVec(0) != 1 {
		t.Errorf("expected action bounds [-1, 1], got [%v, %v]",
			action.LowerBound.AtVec(0), action.UpperBound.AtVec(0))
	}

	obs := env.ObservationSpec()
	if obs.Shape.Len() != 3 {
		t.Errorf("expected 3 observation dimensions, got %v",
			obs.Shape.Len())
	}
	if !math.IsInf(obs.LowerBound.AtVec(0), -1) {
		t.Errorf("expected unbounded observations, got lower bound %v",
			obs.LowerBound.AtVec(0))
	}
}

func TestEnvInteractiveStageRewards(t *testing.T) {
	facade := newFakeFacade()
	robot := newFakeRobot()

	// Handle 2 units from the end effector, door closed
	facade.linkPoses[[2]int{int(testDoorBody), 1}] = physics.Pose{
		Position: r3.Vec{X: 2},
	}
	facade.jointStates[[2]int{int(testDoorBody), 0}] = physics.JointState{}

	config := pointGoalConfig()
	config.Task = Interactive
	config.AdditionalStatesDim = 7
	config.TargetPos = []float64{8, 0, 0}
	config.SlackReward = 0

	scene := InteractiveScene{
		Door:           testDoorBody,
		DoorAxisJoint:  0,
		DoorHandleLink: 1,
		DoorPosition:   r3.Vec{X: 5},
	}
	task, err := NewInteractive(facade, robot, scene, config)
	if err != nil {
		t.Fatalf("newInteractive: %v", err)
	}

	starter := &testStarter{target: r3.Vec{X: 8}}
	env, err := New(config, facade, robot, task, starter, nil, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if _, err := env.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}

	// Reaching the handle fires the first stage transition, granting
	// half the success reward and grasping the handle
	robot.ee = r3.Vec{X: 1.9}
	step, done, err := env.Step(mat.NewVecDense(2, nil))
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if done {
		t.Fatal("the episode must not end at the handle")
	}
	if math.Abs(step.Reward-config.SuccessReward/2) > 1e-9 {
		t.Errorf("expected the stage transition reward %v, got %v",
			config.SuccessReward/2, step.Reward)
	}
	if facade.constraintsMade != 1 {
		t.Errorf("expected one grasp constraint, got %v",
			facade.constraintsMade)
	}

	// Swinging the door open fires the second transition and releases
	// the handle
	facade.jointStates[[2]int{int(testDoorBody), 0}] = physics.JointState{
		Position: -math.Pi * 0.6,
	}
	step, _, err = env.Step(mat.NewVecDense(2, nil))
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if math.Abs(step.Reward-config.SuccessReward/2) > 1e-9 {
		t.Errorf("expected the stage transition reward %v, got %v",
			config.SuccessReward/2, step.Reward)
	}
	if facade.constraintsRemoved != 1 {
		t.Errorf("expected the grasp constraint to be removed, got %v "+
			"removals", facade.constraintsRemoved)
	}
}
