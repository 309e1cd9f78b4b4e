// Package serialization saves and loads layer parameters in SafeTensors format.
//
//	Format Structure:
//	  [8 bytes: Header Size (uint64 LE)]
//	  [Header: JSON, tensor name -> {dtype, shape, data_offsets}, optional "__metadata__"]
//	  [Tensor data: raw little-endian bytes, in header order]
//
// Example usage:
//
//	// Save
//	err := serialization.WriteSafeTensors("model.safetensors", model.StateDict(), map[string]string{
//	    "0": "SubmanifoldConvolution 1->16 C3",
//	})
//
//	// Load
//	stateDict, metadata, err := serialization.ReadSafeTensors("model.safetensors")
//	err = model.LoadStateDict(stateDict)
package serialization
