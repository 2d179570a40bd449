// Copyright 2023 AI Redefined Inc. <dev+cogment@ai-r.com>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package world

import (
	"fmt"
	"math"
	"sync"
)

// Class is a node of the actor class hierarchy
type Class struct {
	name   string
	parent *Class
}

var classRegistry = struct {
	sync.RWMutex
	classes map[string]*Class
}{classes: map[string]*Class{}}

var (
	ActorClass            = NewClass("Actor", nil)
	PawnClass             = NewClass("Pawn", ActorClass)
	CharacterClass        = NewClass("Character", PawnClass)
	ControllerClass       = NewClass("Controller", ActorClass)
	PlayerControllerClass = NewClass("PlayerController", ControllerClass)
	AIControllerClass     = NewClass("AIController", ControllerClass)
)

// NewClass creates and registers a class, registering an existing name replaces the previous class
func NewClass(name string, parent *Class) *Class {
	class := &Class{name: name, parent: parent}

	classRegistry.Lock()
	defer classRegistry.Unlock()
	classRegistry.classes[name] = class

	return class
}

// FindClass returns the class registered with the given name or nil
func FindClass(name string) *Class {
	classRegistry.RLock()
	defer classRegistry.RUnlock()
	return classRegistry.classes[name]
}

func (c *Class) Name() string {
	if c == nil {
		return ""
	}
	return c.name
}

func (c *Class) Parent() *Class {
	return c.parent
}

// IsChildOf returns true if the class is other or one of its descendants
func (c *Class) IsChildOf(other *Class) bool {
	if other == nil {
		return false
	}
	for class := c; class != nil; class = class.parent {
		if class == other {
			return true
		}
	}
	return false
}

func (c *Class) String() string {
	return c.Name()
}

type Vector struct {
	X float32 `yaml:"x"`
	Y float32 `yaml:"y"`
	Z float32 `yaml:"z"`
}

func (v Vector) Add(other Vector) Vector {
	return Vector{v.X + other.X, v.Y + other.Y, v.Z + other.Z}
}

func (v Vector) Sub(other Vector) Vector {
	return Vector{v.X - other.X, v.Y - other.Y, v.Z - other.Z}
}

func (v Vector) Scale(factor float32) Vector {
	return Vector{v.X * factor, v.Y * factor, v.Z * factor}
}

func (v Vector) Size() float32 {
	return float32(math.Sqrt(float64(v.X*v.X + v.Y*v.Y + v.Z*v.Z)))
}

// ClampSize returns a vector with the same direction and a size at most max
func (v Vector) ClampSize(max float32) Vector {
	size := v.Size()
	if size <= max || size == 0 {
		return v
	}
	return v.Scale(max / size)
}

func (v Vector) String() string {
	return fmt.Sprintf("(%g, %g, %g)", v.X, v.Y, v.Z)
}

// Rotator is an orientation expressed as euler angles in degrees
type Rotator struct {
	Pitch float32
	Yaw   float32
	Roll  float32
}

func normalizeAxis(angle float32) float32 {
	normalized := float32(math.Mod(float64(angle), 360))
	if normalized > 180 {
		normalized -= 360
	} else if normalized <= -180 {
		normalized += 360
	}
	return normalized
}

// Normalize returns the same rotation with every angle in ]-180, 180]
func (r Rotator) Normalize() Rotator {
	return Rotator{normalizeAxis(r.Pitch), normalizeAxis(r.Yaw), normalizeAxis(r.Roll)}
}

func (r Rotator) Add(other Rotator) Rotator {
	return Rotator{r.Pitch + other.Pitch, r.Yaw + other.Yaw, r.Roll + other.Roll}
}
